package models

import (
	"time"
)

// User is the identity view the ledger needs: existence for transfer
// recipients and account age for fraud rules.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"not null" json:"name"`
	Role      string    `gorm:"default:'user'" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	IsDeleted bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available reports whether the user can take part in transactions.
func (u *User) Available() bool {
	return u != nil && u.IsActive && !u.IsDeleted
}
