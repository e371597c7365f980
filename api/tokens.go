package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 30 * 24 * time.Hour

const bcryptCost = 10

var (
	errInvalidToken       = errors.New("invalid token")
	errInvalidCredentials = errors.New("invalid credentials")
)

func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
}

// verifyCredentials deliberately reports the same error for an unknown
// email and a wrong password.
func (app *application) verifyCredentials(email, password string) (*user, error) {
	u, err := app.store.getUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errInvalidCredentials
	}
	err = bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password))
	if err != nil {
		return nil, errInvalidCredentials
	}
	return u, nil
}

// issueToken signs a bearer token for u and records it in the user's
// active-token list. The token_id claim keeps tokens issued in the same
// second distinct from each other.
func (app *application) issueToken(u *user) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    u.ID,
		"token_id":   uuid.NewString(),
		"expires_at": time.Now().Add(tokenLifetime).UTC().Format(time.RFC3339),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(app.config.jwtSecret))
	if err != nil {
		return "", err
	}
	err = app.store.insertToken(u.ID, signed)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// verifyToken checks signature and expiry, then requires the token to
// still be in the user's active-token list. Revocation is removal from
// that list, so a logged-out token fails here even though its signature
// is still valid.
func (app *application) verifyToken(tokenStr string) (*user, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(app.config.jwtSecret), nil
	})
	if err != nil {
		return nil, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}
	userIDClaim, ok := claims["user_id"].(float64)
	if !ok {
		return nil, errInvalidToken
	}
	userID := int(userIDClaim)
	expiresAtStr, ok := claims["expires_at"].(string)
	if !ok {
		return nil, errInvalidToken
	}
	expiresAt, err := time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, errInvalidToken
	}
	if time.Now().After(expiresAt) {
		return nil, errInvalidToken
	}

	live, err := app.store.tokenExists(userID, tokenStr)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, errInvalidToken
	}
	u, err := app.store.getUserByID(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errInvalidToken
	}
	return u, nil
}
