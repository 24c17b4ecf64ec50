package notifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/require"

	"tg_escrow/internal/domain/entity"
	"tg_escrow/internal/domain/value"
	"tg_escrow/internal/infrastructure/notifier"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*telego.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, p *telego.SendMessageParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	f.sent = append(f.sent, p)

	return &telego.Message{}, nil
}

func (f *fakeSender) messages() []*telego.SendMessageParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*telego.SendMessageParams(nil), f.sent...)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.tasks = append(f.tasks, task)

	return &asynq.TaskInfo{}, nil
}

func TestSendRoutesToRecipient(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	sender := &fakeSender{}
	bot := notifier.NewTelegramBotWithSender(sender, -100500)

	rq.NoError(bot.Send(ctx, entity.Notification{Kind: entity.NotificationDealPaid, RecipientID: 7, DealID: 3, Amount: 5000}))
	rq.NoError(bot.Send(ctx, entity.Notification{Kind: entity.NotificationDisputeOpened, DealID: 3, Amount: 5000}))

	sent := sender.messages()
	rq.Len(sent, 2)
	rq.Equal(telego.ChatID{ID: 7}, sent[0].ChatID)
	rq.Equal(telego.ChatID{ID: -100500}, sent[1].ChatID)
	rq.Equal(telego.ModeHTML, sent[0].ParseMode)
	rq.Contains(sent[0].Text, "50.00")

	sender.err = errors.New("telegram is down")
	rq.Error(bot.Send(ctx, entity.Notification{Kind: entity.NotificationDeposit, RecipientID: 7, Amount: 100}))
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		n    entity.Notification
		want []string
	}{
		{
			name: "release shows net and fee",
			n:    entity.Notification{Kind: entity.NotificationFundsReleased, DealID: 9, Amount: 5000, Fee: 250},
			want: []string{"#9", "47.50", "2.50"},
		},
		{
			name: "resolution shows winner",
			n:    entity.Notification{Kind: entity.NotificationDisputeResolved, DealID: 9, Amount: 5000, Winner: value.WinnerBuyer},
			want: []string{"buyer", "50.00"},
		},
		{
			name: "message is escaped",
			n:    entity.Notification{Kind: entity.NotificationDealMessage, DealID: 1, Text: "<b>hi</b>"},
			want: []string{"&lt;b&gt;hi&lt;/b&gt;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rq := require.New(t)

			text := notifier.Render(tt.n)
			for _, w := range tt.want {
				rq.Contains(text, w)
			}
		})
	}
}

func TestQueueAndHandler(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	enq := &fakeEnqueuer{}
	q := notifier.NewQueue(enq)

	n := entity.Notification{Kind: entity.NotificationDeposit, RecipientID: 5, Amount: 1250}
	q.Notify(ctx, n, entity.Notification{Kind: entity.NotificationDealPaid, RecipientID: 6, DealID: 1, Amount: 10})

	rq.Len(enq.tasks, 2)
	rq.Equal(notifier.TaskSend, enq.tasks[0].Type())

	sender := &fakeSender{}
	handle := notifier.Handler(notifier.NewTelegramBotWithSender(sender, 1))

	rq.NoError(handle(ctx, enq.tasks[0]))
	rq.Len(sender.messages(), 1)
	rq.Equal(telego.ChatID{ID: 5}, sender.messages()[0].ChatID)

	err := handle(ctx, asynq.NewTask(notifier.TaskSend, []byte("{")))
	rq.ErrorIs(err, asynq.SkipRetry)

	// ошибка очереди не пробрасывается
	q = notifier.NewQueue(&fakeEnqueuer{err: errors.New("redis down")})
	rq.NotPanics(func() { q.Notify(ctx, n) })
}

func TestChannelRun(t *testing.T) {
	rq := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(notifier.Channel, 1)
	ch.Notify(ctx,
		entity.Notification{Kind: entity.NotificationDeposit, RecipientID: 1, Amount: 1},
		entity.Notification{Kind: entity.NotificationDeposit, RecipientID: 2, Amount: 1},
	)

	sender := &fakeSender{}
	bot := notifier.NewTelegramBotWithSender(sender, 0)

	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx, ch) }()

	rq.Eventually(func() bool { return len(sender.messages()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	rq.ErrorIs(<-done, context.Canceled)

	// второе уведомление отброшено, буфер на одно
	rq.Equal(telego.ChatID{ID: 1}, sender.messages()[0].ChatID)
}

func TestConsumeClosedChannel(t *testing.T) {
	rq := require.New(t)

	ch := make(chan entity.Notification, 2)
	ch <- entity.Notification{Kind: entity.NotificationDisputeOpened, DealID: 7}
	ch <- entity.Notification{Kind: entity.NotificationDeposit, RecipientID: 3, Amount: 500}
	close(ch)

	rq.NoError(notifier.Consume(context.Background(), notifier.LogSender{}, ch))
}
