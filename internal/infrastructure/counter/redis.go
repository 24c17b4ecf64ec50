package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis — счётчик с фиксированным окном: INCR и EXPIRE NX в одной транзакции MULTI.
// EXPIRE NX выставляет TTL, только если его ещё нет, поэтому окно не сдвигается
// и ключ без TTL получает его на следующем инкременте.
type Redis struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis.TxPipelined: %w", err)
	}

	return incr.Val(), nil
}
