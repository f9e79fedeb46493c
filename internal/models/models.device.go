// FilePath: internal/models/models.device.go
package models

import "time"

// Device is a registered GreenEye sensing device. DeviceID is the canonical
// 4-character lowercase identifier derived from the MAC address and is the
// primary key across cache keys, time-series tags and the registry.
type Device struct {
	ID           int64     `json:"id" db:"id"`
	DeviceID     string    `json:"device_id" db:"device_id"`
	MACAddress   string    `json:"mac_address" db:"mac_address"`
	FriendlyName string    `json:"friendly_name" db:"friendly_name"`
	OwnerUserID  *int64    `json:"owner_user_id,omitempty" db:"owner_user_id"`
	PlantType    *string   `json:"plant_type,omitempty" db:"plant_type"`
	Room         *string   `json:"room,omitempty" db:"room"`
	DeviceImage  *string   `json:"device_image,omitempty" db:"device_image"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// User is an account in the user registry.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
