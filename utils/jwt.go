package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// GenerateKioskToken creates a signed JWT naming a kiosk device as its subject.
// The token expires after the specified duration.
func GenerateKioskToken(deviceID, secret string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  deviceID,
		"role": "kiosk",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString, secret string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
}

// ExtractKioskID returns the device id (subject) of a valid kiosk token.
func ExtractKioskID(tokenString, secret string) (string, error) {
	token, err := ValidateToken(tokenString, secret)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if role, _ := claims["role"].(string); role != "kiosk" {
		return "", errors.New("token is not a kiosk token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token does not contain a valid 'sub' claim")
	}
	return sub, nil
}
