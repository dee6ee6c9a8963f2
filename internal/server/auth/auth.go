// Package auth issues and verifies the bearer tokens used by the HTTP API.
// Tokens are HS256 JWTs carrying the caller's login and admin flag.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims extends the registered claims with the caller identity.
type Claims struct {
	jwt.RegisteredClaims
	Login string `json:"login"`
	Admin bool   `json:"admin"`
}

// GenerateToken signs a token for the given identity, valid for
// validityDuration from now.
func GenerateToken(login string, admin bool, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Login: login,
		Admin: admin,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry and returns the claims.
// Expired tokens are reported as common.ErrTokenExpired, anything else
// that fails verification as common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
