// FilePath: internal/images/enhance.go
package images

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
)

// Enhancement multipliers tuned for low-light greenhouse frames. These are a
// product decision and must not drift without re-validating the inference
// model against the new output.
const (
	brightnessFactor = 1.2
	contrastFactor   = 1.2
	saturationFactor = 3.0
	sharpnessFactor  = 1.3
)

// smoothKernel is the 3x3 low-pass used as the soft endpoint for the
// sharpness blend.
var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// DecodeFrame turns the producer's text encoding into raw image bytes.
// Firmware sends hex; older test producers sent base64. Hex is tried first
// since valid hex is rarely valid base64 of a real JPEG.
func DecodeFrame(origin string) ([]byte, error) {
	s := strings.TrimSpace(origin)
	if s == "" {
		return nil, errors.NewDecodeError("empty image payload", nil)
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.NewDecodeError("image payload is neither hex nor base64", err)
	}
	return b, nil
}

// Enhance applies the fixed brightness/contrast/saturation/sharpness chain
// and re-encodes as JPEG.
func Enhance(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.NewDecodeError("image bytes undecodable", err)
	}

	out := imaging.Clone(img)
	out = adjustBrightness(out, brightnessFactor)
	out = adjustContrast(out, contrastFactor)
	out = adjustSaturation(out, saturationFactor)
	out = adjustSharpness(out, sharpnessFactor)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, errors.NewInternalError("failed to encode enhanced frame", err)
	}
	return buf.Bytes(), nil
}

// Each adjustment blends the image toward (factor < 1) or away from
// (factor > 1) a degenerate version of itself: black for brightness, flat
// mean gray for contrast, grayscale for saturation, smoothed for sharpness.

func adjustBrightness(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = clamp(float64(c.R) * factor)
		c.G = clamp(float64(c.G) * factor)
		c.B = clamp(float64(c.B) * factor)
		return c
	})
}

func adjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	mean := meanLuminance(img)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = clamp(mean + (float64(c.R)-mean)*factor)
		c.G = clamp(mean + (float64(c.G)-mean)*factor)
		c.B = clamp(mean + (float64(c.B)-mean)*factor)
		return c
	})
}

func adjustSaturation(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		gray := luminance(c)
		c.R = clamp(gray + (float64(c.R)-gray)*factor)
		c.G = clamp(gray + (float64(c.G)-gray)*factor)
		c.B = clamp(gray + (float64(c.B)-gray)*factor)
		return c
	})
}

func adjustSharpness(img *image.NRGBA, factor float64) *image.NRGBA {
	smooth := imaging.Convolve3x3(img, smoothKernel, &imaging.ConvolveOptions{Normalize: true})

	out := imaging.Clone(img)
	for i := 0; i+3 < len(out.Pix); i += 4 {
		out.Pix[i] = clamp(float64(smooth.Pix[i]) + (float64(out.Pix[i])-float64(smooth.Pix[i]))*factor)
		out.Pix[i+1] = clamp(float64(smooth.Pix[i+1]) + (float64(out.Pix[i+1])-float64(smooth.Pix[i+1]))*factor)
		out.Pix[i+2] = clamp(float64(smooth.Pix[i+2]) + (float64(out.Pix[i+2])-float64(smooth.Pix[i+2]))*factor)
	}
	return out
}

func meanLuminance(img *image.NRGBA) float64 {
	if len(img.Pix) == 0 {
		return 0
	}
	var sum float64
	var n int
	for i := 0; i+3 < len(img.Pix); i += 4 {
		sum += 0.299*float64(img.Pix[i]) + 0.587*float64(img.Pix[i+1]) + 0.114*float64(img.Pix[i+2])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func luminance(c color.NRGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

func clamp(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
