// FilePath: internal/models/models.image.go
package models

import "time"

// PlantImage is the relational metadata row for one captured image frame.
// The JPEG itself lives on the filesystem; a sibling .origin file retains
// the raw hex/base64 text the producer sent.
type PlantImage struct {
	ID         int64     `json:"id" db:"id"`
	DeviceID   string    `json:"device_id" db:"device_id"`
	MACAddress string    `json:"mac_address" db:"mac_address"`
	Filename   string    `json:"filename" db:"filename"`
	Filepath   string    `json:"filepath" db:"filepath"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}

// Diagnosis is the inference result cached under latest_ai_diagnosis:<id>.
type Diagnosis struct {
	OK        bool     `json:"ok"`
	DeviceID  string   `json:"device_id"`
	ImagePath string   `json:"image_path"`
	Labels    []string `json:"labels"`
	Score     float64  `json:"score"`
}
