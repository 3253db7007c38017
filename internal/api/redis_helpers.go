package api

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// loginLimiter 按 ip+邮箱限制登录频率，连续失败后锁定该邮箱。
// Redis 出错时放行。
type loginLimiter struct {
	redis     redis.UniversalClient
	perHour   int
	threshold int
	lockTTL   time.Duration
}

type limitVerdict int

const (
	limitAllowed limitVerdict = iota
	limitRateExceeded
	limitLocked
)

func (l *loginLimiter) check(ctx context.Context, ip, email string) limitVerdict {
	if l == nil || l.redis == nil {
		return limitAllowed
	}
	email = strings.ToLower(strings.TrimSpace(email))
	rateKey := "rate:login:" + ip + ":" + email + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, l.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if l.perHour > 0 && count > int64(l.perHour) {
		return limitRateExceeded
	}
	if ttl, _ := l.redis.TTL(ctx, "lock:login:"+email).Result(); ttl > 0 {
		return limitLocked
	}
	return limitAllowed
}

func (l *loginLimiter) fail(ctx context.Context, email string) {
	if l == nil || l.redis == nil || l.threshold <= 0 {
		return
	}
	email = strings.ToLower(strings.TrimSpace(email))
	count, err := incrWithTTL(ctx, l.redis, "lock:login:fail:"+email, l.lockTTL)
	if err != nil {
		return
	}
	if count >= int64(l.threshold) {
		_ = l.redis.Set(ctx, "lock:login:"+email, "1", l.lockTTL).Err()
	}
}

func (l *loginLimiter) reset(ctx context.Context, email string) {
	if l == nil || l.redis == nil {
		return
	}
	_ = l.redis.Del(ctx, "lock:login:fail:"+strings.ToLower(strings.TrimSpace(email))).Err()
}
