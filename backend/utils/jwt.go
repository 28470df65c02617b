package utils

import (
	"errors"
	"strings"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/models"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMissingToken = errors.New("Unauthorized: no token provided")
	ErrInvalidToken = errors.New("Unauthorized: invalid or expired token")
)

// TokenClaims is what the auth gate needs from a verified token. Role is
// empty for tokens minted without one.
type TokenClaims struct {
	UserID uint
	Role   models.Role
}

func GenerateJWTToken(userID uint, role models.Role, cfg *config.Config) (string, error) {
	ttl := time.Duration(cfg.JWTTTL) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// BearerToken strips the "Bearer " prefix. A bare token is accepted as well.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 6 && strings.EqualFold(header[:6], "bearer") && (len(header) == 6 || header[6] == ' ') {
		return strings.TrimSpace(header[6:])
	}
	return header
}

func ParseToken(header string, cfg *config.Config) (*TokenClaims, error) {
	raw := BearerToken(header)
	if raw == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return nil, ErrInvalidToken
	}

	out := &TokenClaims{UserID: uint(userIDFloat)}
	if role, ok := claims["role"].(string); ok && models.Role(role).Valid() {
		out.Role = models.Role(role)
	}
	return out, nil
}
