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

// LoginLimits 是登录限流参数。
type LoginLimits struct {
	PerHour       int
	LockThreshold int
	LockTTL       time.Duration
}

// loginLimiter 基于 Redis 的登录限流与失败锁定；redis 为 nil 时全部放行。
type loginLimiter struct {
	redis  redis.UniversalClient
	limits LoginLimits
}

const (
	errRateLimited   = "rate limit exceeded"
	errAccountLocked = "account temporarily locked"
)

// check 返回拒绝原因，空字符串表示放行。
func (l *loginLimiter) check(ctx context.Context, ip, email string) string {
	if l == nil || l.redis == nil {
		return ""
	}
	email = strings.ToLower(email)

	// 速率限制：每 IP+邮箱 每小时 N 次
	rateKey := "rate:login:" + ip + ":" + email + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, l.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if l.limits.PerHour > 0 && count > int64(l.limits.PerHour) {
		return errRateLimited
	}

	if ttl, _ := l.redis.TTL(ctx, "lock:login:"+email).Result(); ttl > 0 {
		return errAccountLocked
	}
	return ""
}

func (l *loginLimiter) fail(ctx context.Context, email string) {
	if l == nil || l.redis == nil {
		return
	}
	email = strings.ToLower(email)
	count, err := incrWithTTL(ctx, l.redis, "lock:login:fail:"+email, l.limits.LockTTL)
	if err != nil {
		return
	}
	if l.limits.LockThreshold > 0 && count >= int64(l.limits.LockThreshold) {
		_ = l.redis.Set(ctx, "lock:login:"+email, "1", l.limits.LockTTL).Err()
	}
}

func (l *loginLimiter) reset(ctx context.Context, email string) {
	if l == nil || l.redis == nil {
		return
	}
	_ = l.redis.Del(ctx, "lock:login:fail:"+strings.ToLower(email)).Err()
}
