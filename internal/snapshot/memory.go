package snapshot

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements an in-memory store with TTL support
type MemoryStore struct {
	data   sync.Map
	opts   Options
	cancel context.CancelFunc
}

type memoryItem struct {
	value      []byte
	expiration time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemoryStore creates a memory store and starts its expiry sweep
func NewMemoryStore(opts Options) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	m := &MemoryStore{
		opts:   opts,
		cancel: cancel,
	}
	go m.sweep(ctx, time.Minute)
	return m
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	fullKey := m.opts.Prefix + key
	value, ok := m.data.Load(fullKey)
	if !ok {
		return nil, miss(key)
	}

	item := value.(memoryItem)
	if item.expired(time.Now()) {
		m.data.Delete(fullKey)
		return nil, miss(key)
	}
	return item.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.opts.DefaultTTL
	}
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}

	m.data.Store(m.opts.Prefix+key, item)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.data.Delete(m.opts.Prefix + key)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.data.Range(func(key, _ any) bool {
		m.data.Delete(key)
		return true
	})
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := m.Get(ctx, key); err != nil {
		if ctxErr := checkContext(ctx); ctxErr != nil {
			return false, ctxErr
		}
		return false, nil
	}
	return true, nil
}

// Close stops the background sweep
func (m *MemoryStore) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

func (m *MemoryStore) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.data.Range(func(key, value any) bool {
				if value.(memoryItem).expired(now) {
					m.data.Delete(key)
				}
				return true
			})
		}
	}
}
