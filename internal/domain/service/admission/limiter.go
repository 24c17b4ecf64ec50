// Package admission ограничивает частоту действий одного пользователя.
//
// Счётчики живут во внешнем хранилище (Redis), движок между вызовами ничего не хранит.
// Если хранилище недоступно, поведение задаёт Policy.FailOpen: при true запрос
// пропускается с предупреждением в логе и метрикой fail_open, при false отклоняется.
// Защита от спама не финансовая, поэтому по умолчанию выбрана доступность.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/metrics"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/logx"
)

const keyPrefix = "escrow:ratelimit"

type Counter interface {
	// Incr увеличивает счётчик и возвращает новое значение. Окно отсчитывается от первого инкремента.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type Policy struct {
	Limit    int64
	Window   time.Duration
	FailOpen bool
}

func DefaultPolicy() Policy {
	return Policy{
		Limit:    3,               //nolint:mnd
		Window:   2 * time.Second, //nolint:mnd
		FailOpen: true,
	}
}

// PinPolicy — лимит перебора PIN администратора. При недоступном хранилище попытка отклоняется.
func PinPolicy() Policy {
	return Policy{
		Limit:    5,                //nolint:mnd
		Window:   15 * time.Minute, //nolint:mnd
		FailOpen: false,
	}
}

type Limiter struct {
	counter Counter
	policy  Policy
}

func NewLimiter(counter Counter, policy Policy) *Limiter {
	return &Limiter{
		counter: counter,
		policy:  policy,
	}
}

// Allow учитывает действие и возвращает RateLimited, если лимит окна превышен.
func (l *Limiter) Allow(ctx context.Context, actorID int64, action string) error {
	key := fmt.Sprintf("%s:%s:%d", keyPrefix, action, actorID)

	n, err := l.counter.Incr(ctx, key, l.policy.Window)
	if err != nil {
		if l.policy.FailOpen {
			metrics.RateLimitDecisions.WithLabelValues("fail_open").Inc()
			logger(ctx).Warn("rate limiter unavailable, request admitted",
				slog.Int64(logx.FieldActorID, actorID),
				slog.String("action", action),
				logx.Error(err),
			)

			return nil
		}

		metrics.RateLimitDecisions.WithLabelValues("fail_closed").Inc()

		return domain.WrapError(err, errcodes.RateLimiterUnavailable, "rate limiter unavailable")
	}

	if n > l.policy.Limit {
		metrics.RateLimitDecisions.WithLabelValues("rejected").Inc()

		return domain.NewError(errcodes.RateLimited,
			fmt.Sprintf("too many %s actions, retry in %s", action, l.policy.Window))
	}

	metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()

	return nil
}
