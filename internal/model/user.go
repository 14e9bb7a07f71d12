package model

import "time"

type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	PairingCode string    `json:"pairing_code,omitempty"`
	HardwareID  string    `json:"hardware_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
