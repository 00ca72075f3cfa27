package utils

import (
	"errors"
	"strconv"
	"time"

	"ledgerly/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "ledgerly"

// GenerateToken signs an HS256 access token for claims that expires after ttl.
func GenerateToken(secret string, claims models.UserClaims, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET not configured")
	}

	now := time.Now()
	if claims.Permissions == nil {
		claims.Permissions = models.GetDefaultPermissions(claims.Role)
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatUint(uint64(claims.UserID), 10),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
