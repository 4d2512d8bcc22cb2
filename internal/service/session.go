package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cashflow/internal/cache"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix    = "session:"
	oauthStateKeyPrefix = "oauth_state:"
	OAuthStateTTL       = 10 * time.Minute
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidState    = errors.New("invalid or expired oauth state")

	jsonMarshal   = json.Marshal
	jsonUnmarshal = json.Unmarshal
	newSessionID  = uuid.NewString
)

// SessionData 存在 Redis 的 session 內容
type SessionData struct {
	UserID    int       `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

// CreateSession 建立新的 session 並回傳 id
func CreateSession(ctx context.Context, c cache.Cache, userID int, ttl time.Duration) (string, *SessionData, error) {
	now := timeNow().UTC()
	data := &SessionData{UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	raw, err := jsonMarshal(data)
	if err != nil {
		return "", nil, fmt.Errorf("CreateSession: %w", err)
	}
	id := newSessionID()
	if err := c.Set(ctx, sessionKey(id), raw, ttl).Err(); err != nil {
		return "", nil, fmt.Errorf("CreateSession: %w", err)
	}
	return id, data, nil
}

// LookupSession 取得 session；不存在或過期時回傳 ErrSessionNotFound
func LookupSession(ctx context.Context, c cache.Cache, id string) (*SessionData, error) {
	raw, err := c.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("LookupSession: %w", err)
	}
	var data SessionData
	if err := jsonUnmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("LookupSession: %w", err)
	}
	return &data, nil
}

func RevokeSession(ctx context.Context, c cache.Cache, id string) error {
	if err := c.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("RevokeSession: %w", err)
	}
	return nil
}

// CreateOAuthState 產生一次性的 OAuth state
func CreateOAuthState(ctx context.Context, c cache.Cache) (string, error) {
	state, err := GenerateSecret(24)
	if err != nil {
		return "", fmt.Errorf("CreateOAuthState: %w", err)
	}
	if err := c.Set(ctx, oauthStateKeyPrefix+state, "1", OAuthStateTTL).Err(); err != nil {
		return "", fmt.Errorf("CreateOAuthState: %w", err)
	}
	return state, nil
}

// ConsumeOAuthState 驗證並刪除 state，同一個 state 只能使用一次
func ConsumeOAuthState(ctx context.Context, c cache.Cache, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	err := c.GetDel(ctx, oauthStateKeyPrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidState
	}
	if err != nil {
		return fmt.Errorf("ConsumeOAuthState: %w", err)
	}
	return nil
}
