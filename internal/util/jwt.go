package util

import (
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload: the authenticated principal plus the
// reporting currency dashboards convert into.
type Claims struct {
	UserID            uint        `json:"user_id"`
	Role              models.Role `json:"role"`
	PreferredCurrency string      `json:"preferred_currency"`
	jwt.RegisteredClaims
}

// GenerateToken signs a JWT for the user with the given lifetime.
func GenerateToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := &Claims{
		UserID:            user.ID,
		Role:              user.Role,
		PreferredCurrency: user.PreferredCurrency,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
