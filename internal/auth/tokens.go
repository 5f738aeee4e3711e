package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vaps-tech/vaps-server/internal/config"
	"github.com/vaps-tech/vaps-server/internal/models"
)

// Claims is the JWT payload for both token kinds. Refresh tokens carry only
// the user id.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a short-lived token identifying the user.
func GenerateAccessToken(user *models.User) (string, error) {
	cfg := config.Envs.Token
	claims := &Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AccessSecret))
}

// GenerateRefreshToken signs a longer-lived token carrying only the user id.
func GenerateRefreshToken(user *models.User) (string, error) {
	cfg := config.Envs.Token
	claims := &Claims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.RefreshExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.RefreshSecret))
}

// VerifyAccessToken parses and validates an access token and returns the
// user id it identifies.
func VerifyAccessToken(tokenStr string) (string, error) {
	return verify(tokenStr, config.Envs.Token.AccessSecret)
}

// VerifyRefreshToken parses and validates a refresh token and returns the
// user id it identifies.
func VerifyRefreshToken(tokenStr string) (string, error) {
	return verify(tokenStr, config.Envs.Token.RefreshSecret)
}

func verify(tokenStr, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.UserID == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.UserID, nil
}
