package ratelimit

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// window is one identity's log of admitted call times, oldest first.
type window struct {
	mu     sync.Mutex
	stamps []time.Time
	// dead is set when Sweep dropped the window from the map; Admit must
	// then look the identity up again.
	dead bool
}

// prune drops stamps at or before cutoff. Caller holds w.mu.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// insert adds t keeping stamps ordered. Callers read the clock before taking
// w.mu, so concurrent calls can arrive slightly out of order. Caller holds w.mu.
func (w *window) insert(t time.Time) {
	i := sort.Search(len(w.stamps), func(i int) bool { return w.stamps[i].After(t) })
	w.stamps = slices.Insert(w.stamps, i, t)
}

// Memory is a process-local sliding-window log. The map lock is only held to
// find or create a window, so identities never wait on each other's lists.
type Memory struct {
	limit Limit

	mu      sync.RWMutex
	windows map[string]*window
}

// NewMemory creates an in-process limiter.
func NewMemory(limit Limit) *Memory {
	return &Memory{limit: limit.withDefaults(), windows: make(map[string]*window)}
}

// Admit implements Store. It never returns an error.
func (m *Memory) Admit(_ context.Context, clientID string, now time.Time) (bool, error) {
	cutoff := now.Add(-m.limit.Window)
	for {
		w := m.lookup(clientID)
		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}
		w.prune(cutoff)
		if len(w.stamps) >= m.limit.Calls {
			w.mu.Unlock()
			return false, nil
		}
		w.insert(now)
		w.mu.Unlock()
		return true, nil
	}
}

func (m *Memory) lookup(clientID string) *window {
	m.mu.RLock()
	w, ok := m.windows[clientID]
	m.mu.RUnlock()
	if ok {
		return w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok = m.windows[clientID]; !ok {
		w = &window{}
		m.windows[clientID] = w
	}
	return w
}

// Sweep prunes every window and forgets identities with nothing left in
// theirs. It returns the number of identities removed.
func (m *Memory) Sweep(now time.Time) int {
	cutoff := now.Add(-m.limit.Window)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, w := range m.windows {
		w.mu.Lock()
		w.prune(cutoff)
		if len(w.stamps) == 0 {
			w.dead = true
			delete(m.windows, id)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

// Run sweeps once per window until ctx is done.
func (m *Memory) Run(ctx context.Context) {
	t := time.NewTicker(m.limit.Window)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.Sweep(now)
		}
	}
}

// Len reports how many identities are tracked.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.windows)
}

// Count reports how many calls clientID has in its window as of now.
func (m *Memory) Count(clientID string, now time.Time) int {
	m.mu.RLock()
	w, ok := m.windows[clientID]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now.Add(-m.limit.Window))
	return len(w.stamps)
}
