package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/pkg/logx"
)

const (
	TaskSend = "notification:send"

	QueueName = "notifications"

	maxRetry = 5
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue ставит уведомления в очередь asynq. Ошибки постановки только логируются:
// к моменту вызова транзакция уже закоммичена.
type Queue struct {
	client enqueuer
}

func NewQueue(client enqueuer) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Notify(ctx context.Context, notifications ...entity.Notification) {
	for _, n := range notifications {
		payload, err := json.Marshal(n)
		if err != nil {
			logger(ctx).Error("json.Marshal notification", logx.Error(err))
			continue
		}

		task := asynq.NewTask(TaskSend, payload, asynq.MaxRetry(maxRetry), asynq.Queue(QueueName))

		if _, err = q.client.EnqueueContext(ctx, task); err != nil {
			logger(ctx).Error("failed to enqueue notification",
				slog.String("kind", string(n.Kind)), slog.Int64(logx.FieldDealID, n.DealID), logx.Error(err))
		}
	}
}

type sender interface {
	Send(ctx context.Context, n entity.Notification) error
}

// Handler обрабатывает задачи TaskSend. Некорректный payload не ретраится.
func Handler(s sender) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var n entity.Notification
		if err := json.Unmarshal(task.Payload(), &n); err != nil {
			return fmt.Errorf("json.Unmarshal: %v: %w", err, asynq.SkipRetry)
		}

		if err := s.Send(ctx, n); err != nil {
			return fmt.Errorf("sender.Send: %w", err)
		}

		return nil
	}
}

// Channel — уведомления через буферизованный канал, для запуска без Redis.
// При переполнении уведомление отбрасывается.
type Channel chan entity.Notification

func (c Channel) Notify(ctx context.Context, notifications ...entity.Notification) {
	for _, n := range notifications {
		select {
		case c <- n:
		default:
			logger(ctx).Warn("notification dropped, channel is full", slog.String("kind", string(n.Kind)))
		}
	}
}
