package repositories

import (
	"context"
	"errors"
	"strings"

	"ledgerly/internal/models"
)

// SeedUser describes one identity row to create.
type SeedUser struct {
	Email string
	Name  string
	Role  string
}

// SeedUsers creates every seed whose email is not taken yet and returns
// all of them, created or existing, in input order.
func SeedUsers(ctx context.Context, users UserRepository, seeds []SeedUser) ([]models.User, error) {
	out := make([]models.User, 0, len(seeds))
	for _, s := range seeds {
		email := strings.ToLower(strings.TrimSpace(s.Email))
		if email == "" {
			continue
		}

		existing, err := users.GetByEmail(ctx, email)
		if err == nil {
			out = append(out, *existing)
			continue
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}

		u := &models.User{
			Email:    email,
			Name:     s.Name,
			Role:     s.Role,
			IsActive: true,
		}
		if u.Name == "" {
			u.Name = strings.SplitN(email, "@", 2)[0]
		}
		if u.Role == "" {
			u.Role = "user"
		}
		if err := users.Create(ctx, u); err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}
