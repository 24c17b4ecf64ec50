package counter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const cleanupInterval = time.Minute

// Memory — счётчик в памяти процесса для запуска без Redis. Не разделяется между репликами.
type Memory struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemory() *Memory {
	return &Memory{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (m *Memory) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.cache.Add(key, int64(1), window); err == nil {
		return 1, nil
	}

	n, err := m.cache.IncrementInt64(key, 1)
	if err != nil {
		// Ключ истёк между Add и IncrementInt64.
		m.cache.Set(key, int64(1), window)
		return 1, nil //nolint:nilerr
	}

	if n < 1 {
		return 0, fmt.Errorf("counter %q is corrupted: %d", key, n)
	}

	return n, nil
}
