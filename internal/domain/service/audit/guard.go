package audit

import (
	"context"
	"sync"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/metrics"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/logx"
)

// Guard — аварийный выключатель финансовых операций. После нарушения целостности
// журнала все изменения балансов отклоняются до ручного разбора и перезапуска.
type Guard struct {
	mu     sync.RWMutex
	reason error
}

func NewGuard() *Guard {
	return &Guard{}
}

// Check возвращает IntegrityViolation, если выключатель сработал.
func (g *Guard) Check() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.reason == nil {
		return nil
	}

	return domain.WrapError(g.reason, errcodes.IntegrityViolation, "financial operations are halted")
}

func (g *Guard) Halted() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.reason != nil
}

// Trip останавливает операции. Повторные вызовы сохраняют первую причину.
func (g *Guard) Trip(ctx context.Context, reason error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.reason != nil {
		return
	}

	g.reason = reason

	metrics.AuditIntegrityFailures.Inc()
	logger(ctx).Error("audit chain integrity violated, financial operations halted", logx.Error(reason))
}
