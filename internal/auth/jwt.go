package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenTTL is how long gateway-issued access tokens stay valid.
const AccessTokenTTL = 12 * time.Hour

type Claims struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	Roles     []string `json:"roles"`
	NIT       string   `json:"nit,omitempty"`
	ClienteID int64    `json:"cliente_id,omitempty"`
	jwt.RegisteredClaims
}

// User returns the identity carried by the claims.
func (c *Claims) User() User {
	return User{
		ID:        c.UserID,
		Email:     c.Email,
		FullName:  c.FullName,
		IsActive:  true,
		Roles:     c.Roles,
		NIT:       c.NIT,
		ClienteID: c.ClienteID,
	}
}

func GenerateToken(secret string, user User) (string, error) {
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Roles:     user.Roles,
		NIT:       user.NIT,
		ClienteID: user.ClienteID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// IdentityFromToken reads the identity claims without verifying the
// signature. The client never holds the signing secret; the gateway
// verifies every request.
func IdentityFromToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
