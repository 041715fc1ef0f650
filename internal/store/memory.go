package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ─── In-Memory Backend ──────────────────────────────────────────────────────

type memEntry struct {
	val       []byte
	version   int64
	expiresAt time.Time // zero means no expiry
}

// Memory is the in-process store backend, used by tests and single-node
// dev runs. Expiry is lazy: expired entries are treated as absent at read
// time and overwritten in place.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memEntry

	// Injectable clock for testing.
	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*memEntry),
		now:     time.Now,
	}
}

// live returns the entry if present and unexpired; expired entries are
// dropped on sight.
func (m *Memory) live(key string) *memEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.live(key)
	if e == nil {
		return nil, 0, false, nil
	}
	out := make([]byte, len(e.val))
	copy(out, e.val)
	return out, e.version, true, nil
}

func (m *Memory) Put(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(val))
	copy(cp, val)
	if e := m.live(key); e != nil {
		e.val = cp
		e.version++
		e.expiresAt = time.Time{}
		return nil
	}
	m.entries[key] = &memEntry{val: cp, version: 1}
	return nil
}

func (m *Memory) CompareAndSwap(_ context.Context, key string, expect int64, val []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(val))
	copy(cp, val)

	e := m.live(key)
	if expect == 0 {
		if e != nil {
			return false, nil
		}
		m.entries[key] = &memEntry{val: cp, version: 1}
		return true, nil
	}
	if e == nil || e.version != expect {
		return false, nil
	}
	e.val = cp
	e.version++
	return true, nil
}

func (m *Memory) Incr(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.live(key)
	if e == nil {
		m.entries[key] = &memEntry{val: []byte(strconv.FormatInt(delta, 10)), version: 1}
		return delta, nil
	}
	cur, err := strconv.ParseInt(string(e.val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("incr on non-counter key %q: %w", key, err)
	}
	cur += delta
	e.val = []byte(strconv.FormatInt(cur, 10))
	e.version++
	return cur, nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.live(key); e != nil {
		e.expiresAt = m.now().Add(ttl)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) && m.live(k) != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Wipe(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memEntry)
	return nil
}
