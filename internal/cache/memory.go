package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DefaultSweepInterval is how often writes to a MemoryBackend also sweep
// expired entries.
const DefaultSweepInterval = time.Minute

// MemoryBackend is an in-process Backend for single-instance deployments and
// tests. Expired entries are dropped when read, on Prune, and by a sweep that
// piggybacks on the first write after each sweep interval.
type MemoryBackend struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	now        func() time.Time
	sweepEvery time.Duration
	lastSweep  time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
	}
}

// Get implements Backend.
func (b *MemoryBackend) Get(_ context.Context, ns Namespace, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := qualify(ns, key)
	e, ok := b.entries[k]
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(e.expiresAt) {
		delete(b.entries, k)
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

// SetIfAbsent implements Backend.
func (b *MemoryBackend) SetIfAbsent(_ context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := qualify(ns, key)
	now := b.now()
	if now.Sub(b.lastSweep) >= b.sweepEvery {
		b.sweep(now)
	}
	if e, ok := b.entries[k]; ok && now.Before(e.expiresAt) {
		return ErrConflict
	}
	b.entries[k] = memoryEntry{value: slices.Clone(value), expiresAt: now.Add(ttl)}
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (b *MemoryBackend) Prune(context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sweep(b.now()), nil
}

// sweep must be called with mu held.
func (b *MemoryBackend) sweep(now time.Time) int64 {
	var removed int64
	for k, e := range b.entries {
		if !now.Before(e.expiresAt) {
			delete(b.entries, k)
			removed++
		}
	}
	b.lastSweep = now
	return removed
}

// Ping implements Backend.
func (b *MemoryBackend) Ping(context.Context) error { return nil }

// Close implements Backend.
func (b *MemoryBackend) Close() error { return nil }

// Len returns the number of stored entries, expired ones included.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
