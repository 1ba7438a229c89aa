package hosting

import "sync"

// memo computes a value on first use and keeps it. "Not resolved yet" is
// tracked separately from the value so that a nil or empty result is not
// recomputed.
type memo[T any] struct {
	mu   sync.Mutex
	done bool
	val  T
}

func (m *memo[T]) get(compute func() T) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.done {
		m.val = compute()
		m.done = true
	}
	return m.val
}

func (m *memo[T]) resolved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}
