package mercure

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a hub access token.
type Claims struct {
	jwt.RegisteredClaims
	Mercure MercureClaim `json:"mercure"`
}

// MercureClaim lists the topic selectors a token may subscribe and publish to.
type MercureClaim struct {
	Subscribe []string `json:"subscribe,omitempty"`
	Publish   []string `json:"publish,omitempty"`
}

// MintToken signs an HS256 token granting the given subscribe and publish selectors.
// A zero ttl produces a token without expiry.
func MintToken(key string, subscribe, publish []string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("jwt key is required")
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Mercure: MercureClaim{Subscribe: subscribe, Publish: publish},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies an HS256 token signed with key and returns its claims.
func ParseToken(key, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return []byte(key), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Allows reports whether selectors grant access to every topic.
// The selector "*" matches any topic.
func Allows(selectors, topics []string) bool {
	if len(topics) == 0 {
		return false
	}
	if slices.Contains(selectors, "*") {
		return true
	}
	for _, t := range topics {
		if !slices.Contains(selectors, t) {
			return false
		}
	}
	return true
}
