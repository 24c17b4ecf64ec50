package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tg_escrow/internal/domain/service/audit"
	"tg_escrow/pkg/logx"
)

type chainVerifier interface {
	VerifyAll(ctx context.Context) (audit.Report, error)
}

// AuditVerifier периодически проверяет журнал аудита целиком.
// Сам не останавливает движок: при нарушении срабатывает Guard внутри проверки.
type AuditVerifier struct {
	verifier chainVerifier
	interval time.Duration

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	wg         sync.WaitGroup
	last       audit.Report
}

func NewAuditVerifier(verifier chainVerifier, interval time.Duration) *AuditVerifier {
	return &AuditVerifier{
		verifier: verifier,
		interval: interval,
	}
}

func (w *AuditVerifier) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errors.New("audit verifier is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.isRunning = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			w.isRunning = false
			w.cancelFunc = nil
			w.mu.Unlock()
		}()

		if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger(ctx).Error("audit verifier stopped", logx.Error(err))
		}
	}()

	return nil
}

func (w *AuditVerifier) Stop() {
	w.mu.Lock()

	if !w.isRunning {
		w.mu.Unlock()
		return
	}

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *AuditVerifier) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.isRunning
}

// LastReport — результат последней успешной проверки.
func (w *AuditVerifier) LastReport() audit.Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.last
}

// Run проверяет журнал сразу после старта и затем раз в interval.
func (w *AuditVerifier) Run(ctx context.Context) error {
	logger(ctx).Info("audit verifier started", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.verify(ctx)

		select {
		case <-ctx.Done():
			logger(ctx).Info("audit verifier stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *AuditVerifier) verify(ctx context.Context) {
	report, err := w.verifier.VerifyAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		logger(ctx).Error("audit chain verification failed", logx.Error(err))

		return
	}

	w.mu.Lock()
	w.last = report
	w.mu.Unlock()
}
