package jwt

import (
	"aimtrainer/backend/internal/config"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = time.Hour * 24 * 7

// Claims is the identity carried by a verified token.
type Claims struct {
	UserID uint
	Name   string
}

// GenerateToken creates a new JWT for a given user using the configured secret.
func GenerateToken(userID uint, name string) (string, error) {
	return GenerateTokenWithSecret(config.AppConfig.JWTSecret, userID, name, TokenTTL)
}

// GenerateTokenWithSecret signs a token for userID with an explicit secret and lifetime.
func GenerateTokenWithSecret(secret string, userID uint, name string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"name": name,
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", eris.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// ParseToken verifies tokenString against secret and extracts its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, eris.New("invalid token claims")
	}

	// JSON numbers decode as float64.
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return nil, eris.New("token has no subject")
	}

	name, _ := claims["name"].(string)
	return &Claims{UserID: uint(sub), Name: name}, nil
}
