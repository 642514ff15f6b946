package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionRepository 缓存调用方会话键到对话 ID 的映射。
type SessionRepository interface {
	// GetConversationID 返回会话键对应的对话 ID，未命中时返回空字符串。
	GetConversationID(ctx context.Context, sessionKey string) (string, error)
	SetConversationID(ctx context.Context, sessionKey, conversationID string) error
}

type redisSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(redisClient *redis.Client, ttl time.Duration) SessionRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &redisSessionRepository{redisClient: redisClient, ttl: ttl}
}

func sessionKey(key string) string {
	return fmt.Sprintf("session:%s:conversation", key)
}

func (r *redisSessionRepository) GetConversationID(ctx context.Context, key string) (string, error) {
	convID, err := r.redisClient.Get(ctx, sessionKey(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session conversation: %w", err)
	}
	return convID, nil
}

// SetConversationID 只在键不存在时写入，避免覆盖先到者的映射。
func (r *redisSessionRepository) SetConversationID(ctx context.Context, key, conversationID string) error {
	if err := r.redisClient.SetNX(ctx, sessionKey(key), conversationID, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session conversation: %w", err)
	}
	return nil
}
