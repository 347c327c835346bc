package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The OAuth state parameter is a short-lived HS256 token binding the
// browser's callback to the pending login it started. Tampered or expired
// state fails verification before the nonce store is even consulted.

type stateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

func signState(secret []byte, userID, nonce string, ttl time.Duration, now time.Time) (string, error) {
	claims := stateClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseState(secret []byte, raw string) (userID, nonce string, err error) {
	var claims stateClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", "", err
	}
	if claims.Subject == "" || claims.Nonce == "" {
		return "", "", fmt.Errorf("state missing subject or nonce")
	}
	return claims.Subject, claims.Nonce, nil
}
