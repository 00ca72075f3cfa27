package repositories

import (
	"context"

	"ledgerly/internal/models"
)

// UserRepository is the identity provider view of users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// GetByID returns ErrUserNotFound for missing or deleted users.
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id uint) (bool, error)
}
