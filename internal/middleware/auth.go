// Package middleware provides HTTP middleware components for the application.
// It includes authentication and authorization for the fiber web framework.
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
	"ledgerly/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const claimsKey = "claims"

// AuthMiddleware validates bearer tokens and puts the caller's claims on
// the request context.
type AuthMiddleware struct {
	secret []byte
	users  repositories.UserRepository
	logger *zap.Logger
}

func NewAuthMiddleware(secret string, users repositories.UserRepository, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		secret: []byte(secret),
		users:  users,
		logger: logger,
	}
}

// Handler checks for:
// - Presence of Authorization header with Bearer token
// - Valid HS256 signature and expiry
// - An active user behind the token
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims := &models.UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		m.logger.Debug("token rejected", zap.Error(err))
		return response.Error(c, fiber.StatusUnauthorized, "invalid token")
	}
	if claims.UserID == 0 {
		return response.Error(c, fiber.StatusUnauthorized, "invalid claims")
	}

	if m.users != nil {
		user, err := m.users.GetByID(c.UserContext(), claims.UserID)
		if errors.Is(err, repositories.ErrUserNotFound) {
			return response.Error(c, fiber.StatusUnauthorized, "invalid token")
		}
		if err != nil {
			m.logger.Error("failed to load token user", zap.Uint("user_id", claims.UserID), zap.Error(err))
			return response.Error(c, fiber.StatusServiceUnavailable, "identity provider unavailable")
		}
		if !user.Available() {
			return response.Error(c, fiber.StatusForbidden, "account disabled")
		}
	}

	c.Locals(claimsKey, claims)
	c.Locals("userID", claims.UserID)
	return c.Next()
}

// ClaimsFrom returns the claims Handler stored on c.
func ClaimsFrom(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, ok := c.Locals(claimsKey).(*models.UserClaims)
	return claims, ok && claims != nil
}

// AdminOnly rejects callers whose role is not admin.
func AdminOnly(c *fiber.Ctx) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return response.Unauthorized(c)
	}
	if claims.Role != "admin" {
		return response.Forbidden(c)
	}
	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
// Admins pass every check.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return response.Unauthorized(c)
		}
		if claims.Role == "admin" || claims.HasPermission(permission) {
			return c.Next()
		}
		return response.Forbidden(c)
	}
}
