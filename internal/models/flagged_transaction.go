package models

import "time"

// FlaggedTransaction records that a completed transaction tripped one or
// more fraud rules. At most one exists per transaction.
type FlaggedTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	TransactionID uint      `gorm:"uniqueIndex;not null" json:"transaction_id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	Reason        string    `gorm:"not null" json:"reason"`
	DetectedAt    time.Time `gorm:"index;not null" json:"detected_at"`
}
