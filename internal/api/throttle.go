package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// 登录限流与失败锁定共用的 Redis 计数器。
// 首次命中时开启过期窗口，窗口结束后计数自动归零。
type throttleCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// hitThrottle 将 key 的计数加一，返回窗口内累计命中次数。
func hitThrottle(ctx context.Context, client throttleCounter, key string, window time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, window).Err()
	}
	return count, nil
}
