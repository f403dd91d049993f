package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Email           string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash    string `json:"-" gorm:"not null"`                        // argon2id, never serialize
	TimeRemaining   int64  `json:"time_remaining" gorm:"not null;default:0"` // seconds
	TOTPSecret      string `json:"-"`                                        // Base32, empty unless enabled
	TOTPEnabled     bool   `json:"totp_enabled" gorm:"not null;default:false"`
	LastTOTPCounter int64  `json:"-" gorm:"not null;default:0"` // highest accepted time step
	APIKey          string `json:"-" gorm:"uniqueIndex;not null"`
}
