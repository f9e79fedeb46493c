// FilePath: internal/repository/files/files.storage.go
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const frameTimeLayout = "20060102150405"

// Storage writes camera frames into a flat upload directory. Filenames are
// <device_id>_<timestamp>.jpg so the newest frame per device sorts last.
type Storage struct {
	uploadDir string
}

func NewStorage(uploadDir string) (*Storage, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, errors.NewInternalError("failed to create upload directory", err)
	}
	nuts.L.Infof("[FileStore] Upload directory ready at %s", uploadDir)
	return &Storage{uploadDir: uploadDir}, nil
}

// StoreFrame writes the enhanced JPEG and, when origin is non-empty, a
// sibling .origin file holding the untouched hex/base64 text for audit.
func (s *Storage) StoreFrame(deviceID string, capturedAt time.Time, jpeg []byte, origin []byte) (*repository.StoredFrame, error) {
	filename := fmt.Sprintf("%s_%s.jpg", deviceID, capturedAt.UTC().Format(frameTimeLayout))
	path := filepath.Join(s.uploadDir, filename)

	if err := os.WriteFile(path, jpeg, 0o644); err != nil {
		return nil, errors.NewInternalError("failed to write frame", err)
	}

	frame := &repository.StoredFrame{Filename: filename, Path: path}

	if len(origin) > 0 {
		originPath := path + ".origin"
		if err := os.WriteFile(originPath, origin, 0o644); err != nil {
			// Enhanced frame is already on disk, keep going.
			nuts.L.Warnf("[FileStore] Failed to write origin frame %s: %v", originPath, err)
		} else {
			frame.OriginPath = originPath
		}
	}

	return frame, nil
}

// FramePath resolves a stored filename back to its absolute path. The
// filename is cleaned to its base to keep callers inside the upload dir.
func (s *Storage) FramePath(filename string) string {
	return filepath.Join(s.uploadDir, filepath.Base(filename))
}
