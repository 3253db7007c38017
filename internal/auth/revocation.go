package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedSessionKeyPrefix = "auth:session:revoked:"

// RedisRevocations 在 Redis 中保存已吊销的会话 id，直到令牌本身过期。
type RedisRevocations struct {
	client redis.UniversalClient
}

// NewRedisRevocations 包装 Redis 客户端。
func NewRedisRevocations(client redis.UniversalClient) *RedisRevocations {
	return &RedisRevocations{client: client}
}

// Revoke 将 tokenID 拉黑至 expiresAt。
func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.client.Set(ctx, revokedSessionKeyPrefix+tokenID, "revoked", ttl).Err()
}

// IsRevoked 实现 RevocationChecker。
func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, revokedSessionKeyPrefix+tokenID).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}
