package utils

import (
	stderrors "errors"
	"fmt"
	"time"

	"healthtrack-api/core/config"
	"healthtrack-api/core/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Scope  string    `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken signs a JWT for the given user with the configured secret.
func GenerateToken(userID uuid.UUID, scope string) (string, error) {
	cfg := config.GetSafe()
	if cfg.JWT.Secret == "" {
		return "", fmt.Errorf("jwt secret not configured")
	}

	now := time.Now()
	claims := TokenClaims{
		UserID: userID,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.JWT.ExpiryHours) * time.Hour)),
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ValidateAndParseToken verifies the signature and expiry and returns the
// claims.
func ValidateAndParseToken(tokenString string) (*TokenClaims, error) {
	cfg := config.GetSafe()

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.NewAppError(errors.ErrTokenExpired, "token expired", err)
		}
		return nil, errors.NewAppError(errors.ErrInvalidTokenFormat, "invalid token", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.NewAppError(errors.ErrInvalidTokenFormat, "invalid token claims", nil)
	}

	return claims, nil
}
