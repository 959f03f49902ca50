package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// TokenIssuer mints the bearer tokens the API accepts. There is no login
// flow: an operator token is printed by the seed command.
type TokenIssuer struct {
	jwtKey []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(jwtKey []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{jwtKey: jwtKey, ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(operator string) (string, error) {
	if operator == "" {
		return "", errors.New("operator name is required")
	}
	now := i.now()
	claims := jwt.MapClaims{
		"sub": operator,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}
