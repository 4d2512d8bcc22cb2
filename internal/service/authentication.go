package service

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"cashflow/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// 測試替換點
var (
	timeNow         = time.Now
	parseWithClaims = jwt.ParseWithClaims
)

// CustomClaims 定義 JWT 負載內容；
// session token 的 jti 為 Redis 中的 session id，client token 帶 ClientID
type CustomClaims struct {
	UserID   int        `json:"uid"`
	Role     model.Role `json:"role"`
	ClientID string     `json:"client_id,omitempty"`
	jwt.RegisteredClaims
}

// IsSession 表示此 token 綁定伺服器端 session
func (c *CustomClaims) IsSession() bool {
	return c.ClientID == "" && c.ID != ""
}

func jwtSecret() ([]byte, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET not set")
	}
	return []byte(secret), nil
}

func sign(claims CustomClaims) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func registered(user model.User, id string, ttl time.Duration) jwt.RegisteredClaims {
	now := timeNow()
	return jwt.RegisteredClaims{
		ID:        id,
		Subject:   strconv.Itoa(user.ID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueSessionToken 產生瀏覽器 session 用的 JWT，jti 綁定 sessionID
func IssueSessionToken(user model.User, sessionID string, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id required")
	}
	return sign(CustomClaims{
		UserID:           user.ID,
		Role:             user.Role,
		RegisteredClaims: registered(user, sessionID, ttl),
	})
}

// IssueClientAccessToken 產生 client_credentials 用的 JWT，代表 client 擁有者
func IssueClientAccessToken(user model.User, client model.APIClient, ttl time.Duration) (string, error) {
	if client.OwnerID != user.ID {
		return "", fmt.Errorf("client %s does not belong to user %d", client.ClientID, user.ID)
	}
	return sign(CustomClaims{
		UserID:           user.ID,
		Role:             user.Role,
		ClientID:         client.ClientID,
		RegisteredClaims: registered(user, "", ttl),
	})
}

// VerifyAccessToken 驗證並解析 JWT 令牌，只接受 HMAC 簽章
func VerifyAccessToken(tokenString string) (*CustomClaims, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}

	token, err := parseWithClaims(tokenString, &CustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
