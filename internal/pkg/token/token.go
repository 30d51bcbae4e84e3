package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
)

const (
	// Session tokens live a week, matching the original cookie lifetime.
	SessionTokenTTL = 7 * 24 * time.Hour
	// Reset tokens are short-lived; the email states the expiry.
	ResetTokenTTL = time.Hour
)

const resetTokenType = "password-reset"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongPurpose = errors.New("token issued for a different purpose")
)

func secret() []byte {
	return []byte(env.GetEnv("JWT_SECRET", "dev_secret"))
}

// GenerateSessionToken creates a signed JWT for an authenticated user.
func GenerateSessionToken(userID, email string) (string, error) {
	return generateSessionTokenWithTTL(userID, email, SessionTokenTTL)
}

func generateSessionTokenWithTTL(userID, email string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(secret())
}

// VerifySessionToken parses a session token and returns the user id.
func VerifySessionToken(tokenStr string) (string, error) {
	claims, err := parse(tokenStr)
	if err != nil {
		return "", err
	}
	if typ, _ := claims["type"].(string); typ != "" {
		// Reset tokens must not pass as session tokens.
		return "", ErrWrongPurpose
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// GeneratePasswordResetToken creates a short-lived, typed reset token bound
// to the user's email.
func GeneratePasswordResetToken(email string) (string, error) {
	return generateResetTokenWithTTL(email, ResetTokenTTL)
}

func generateResetTokenWithTTL(email string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"type":  resetTokenType,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(secret())
}

// VerifyPasswordResetToken parses a reset token and returns the bound email.
func VerifyPasswordResetToken(tokenStr string) (string, error) {
	claims, err := parse(tokenStr)
	if err != nil {
		return "", err
	}
	if typ, _ := claims["type"].(string); typ != resetTokenType {
		return "", ErrWrongPurpose
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}

func parse(tokenStr string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret(), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
