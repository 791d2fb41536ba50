package promptcache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key      string
	value    string
	storedAt time.Time
}

// Memory is an in-process Cache. Safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	order      *list.List // front is oldest
	entries    map[string]*list.Element
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewMemory creates a Memory cache. Non-positive limits fall back to the defaults.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Lookup implements Cache. Every expired entry is purged before the lookup.
func (m *Memory) Lookup(_ context.Context, prompt string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeExpiredLocked()

	el, ok := m.entries[Key(prompt)]
	if !ok {
		return "", false
	}
	return el.Value.(*memoryEntry).value, true
}

// Store implements Cache. Re-storing an existing key refreshes its value and
// timestamp but keeps its place in the eviction order.
func (m *Memory) Store(_ context.Context, prompt, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(prompt)
	if el, ok := m.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.storedAt = m.now()
		return
	}

	for m.order.Len() >= m.maxEntries {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}

	m.entries[key] = m.order.PushBack(&memoryEntry{key: key, value: value, storedAt: m.now()})
}

// Clear implements Cache.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.order.Init()
	m.entries = make(map[string]*list.Element)
	return nil
}

// Stats implements Cache.
func (m *Memory) Stats(_ context.Context) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Size:       m.order.Len(),
		MaxSize:    m.maxEntries,
		TTLMinutes: int(m.ttl / time.Minute),
	}
}

func (m *Memory) purgeExpiredLocked() {
	now := m.now()
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*memoryEntry)
		if now.Sub(entry.storedAt) >= m.ttl {
			m.order.Remove(el)
			delete(m.entries, entry.key)
		}
		el = next
	}
}
