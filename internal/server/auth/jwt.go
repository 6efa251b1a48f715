// Package auth mints and verifies the HS256 tokens that back sessions.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the registered claims plus the owning user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// now is replaced in tests.
var now = time.Now

// GenerateToken signs a token for userID valid for validity. Each token gets
// a random jti so two tokens minted in the same second never collide.
func GenerateToken(userID string, secretKey []byte, validity time.Duration) (string, time.Time, error) {
	issued := now()
	expires := issued.Add(validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expires, nil
}

// GetUserIDFromToken verifies tokenString and returns its UserID claim.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// verification yields common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
