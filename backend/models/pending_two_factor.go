package models

import "time"

// PendingTwoFactor holds a candidate TOTP secret until the owner confirms it.
type PendingTwoFactor struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"uniqueIndex;not null"`
	Secret    string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}
