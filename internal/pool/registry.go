package pool

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"socketpoold/internal/idgen"
)

// Registry is the bounded, keyed container of pooled upstream sockets.
// It is the only structure in the daemon with concurrent writers (the
// dispatcher and the background maintenance loop) and is protected by mu.
//
// Grounded on internal/gateway/push/manager.go's connStore sync.Map plus
// ConnectionHolder pattern, generalized from a per-user websocket holder
// (with an always-on writer goroutine) to a per-endpoint TCP entry with an
// explicit busy flag, since the dispatcher needs synchronous request/
// response rather than fire-and-forget delivery.
//
// The most important concurrency invariant: at most one goroutine ever
// writes/reads a given entry's socket at a time, even when two requests
// for the same never-before-seen key race through Acquire-miss and
// Insert concurrently. Insert rejects a second install for a key that
// already has an entry, and Release/DropEntry compare the entry pointer
// they're given against the map's current value for key before acting,
// so a caller can never mutate or tear down a different generation's
// entry than the one it actually holds.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*Entry
	order   []Key // insertion order, for deterministic LRU tie-breaks
	maxSize int
}

// NewRegistry builds an empty registry bounded at maxSize entries.
func NewRegistry(maxSize int) *Registry {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Registry{
		entries: make(map[Key]*Entry),
		maxSize: maxSize,
	}
}

// Acquire returns a usable socket for key if a live, idle entry exists.
// A busy entry (already checked out by another in-flight request) is
// treated as a miss rather than a blocking wait, preserving bounded IPC
// latency. A socket the caller dials after such a miss is not pooled:
// Insert rejects it while the busy entry exists. The invariant
// that at most one goroutine ever holds a given entry's socket is
// enforced here by the busy flag.
func (r *Registry) Acquire(key Key) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok || entry.busy {
		return nil, false
	}
	if !entry.Socket.Alive() {
		r.dropLocked(key)
		return nil, false
	}

	entry.busy = true
	entry.LastUsedAt = time.Now()
	entry.UsageCount++
	return entry, true
}

// Insert registers a freshly connected socket for key, evicting the LRU
// entry first if the registry is already at capacity. If an entry for key
// already exists (installed by a racing caller that also missed on
// Acquire), Insert installs nothing and reports false: the caller's own
// freshly dialed socket is surplus and must be closed by the caller, which
// should then retry Acquire against the entry that won. This is the only
// place a new generation is created for a key, which is what lets
// Release/DropEntry use pointer identity against r.entries[key] to act
// only on the exact generation the caller is holding, never a later one
// installed by a concurrent Acquire-miss on the same key.
func (r *Registry) Insert(key Key, socket Socket) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; exists {
		return nil, false
	}

	if len(r.entries) >= r.maxSize {
		r.evictOldestLocked()
	}

	now := time.Now()
	entry := &Entry{
		Key:          key,
		Socket:       socket,
		CreatedAt:    now,
		LastUsedAt:   now,
		UsageCount:   1,
		ConnectionID: idgen.NextConnectionID(),
		busy:         true,
	}
	r.order = append(r.order, key)
	r.entries[key] = entry
	return entry, true
}

// Release marks entry available again, but only if entry is still the
// live generation installed for key: if a concurrent Drop/EvictExpired/
// EvictOldest has already replaced or removed it, Release is a no-op
// rather than mutating a socket the caller no longer holds.
func (r *Registry) Release(key Key, entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[key]; ok && cur == entry {
		cur.busy = false
	}
}

// DropEntry tears down and removes entry if it is still the live
// generation installed for key. Used by the dispatcher to retire its own
// failed connection without disturbing a different generation a
// concurrent request may have installed at the same key in the meantime.
func (r *Registry) DropEntry(key Key, entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[key]; ok && cur == entry {
		r.dropLocked(key)
	}
}

// Drop unconditionally tears down and removes whatever entry is currently
// installed for key, regardless of generation. Used by explicit
// operator-initiated close_connection requests, where "close whatever is
// there right now" is the intended semantics. Idempotent.
func (r *Registry) Drop(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(key)
}

func (r *Registry) dropLocked(key Key) {
	entry, ok := r.entries[key]
	if !ok {
		return
	}
	_ = entry.Socket.Close()
	delete(r.entries, key)
	r.removeFromOrderLocked(key)
}

func (r *Registry) removeFromOrderLocked(key Key) {
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// EvictExpired removes every entry whose last use is older than ttl,
// relative to now. Busy entries (in-flight) are never evicted.
func (r *Registry) EvictExpired(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted int
	for _, key := range append([]Key(nil), r.order...) {
		entry := r.entries[key]
		if entry == nil || entry.busy {
			continue
		}
		if now.Sub(entry.LastUsedAt) > ttl {
			r.dropLocked(key)
			evicted++
		}
	}
	return evicted
}

// EvictOldest removes the single idle entry with the smallest
// LastUsedAt, breaking ties by insertion order. Reports whether anything
// was evicted (the pool may be empty, or entirely busy).
func (r *Registry) EvictOldest() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictOldestLocked()
}

func (r *Registry) evictOldestLocked() bool {
	var oldestKey Key
	var oldest *Entry
	for _, key := range r.order {
		entry := r.entries[key]
		if entry == nil || entry.busy {
			continue
		}
		if oldest == nil || entry.LastUsedAt.Before(oldest.LastUsedAt) {
			oldest = entry
			oldestKey = key
		}
	}
	if oldest == nil {
		return false
	}
	zap.L().Debug("pool: evicting LRU entry", zap.String("key", oldestKey.String()))
	r.dropLocked(oldestKey)
	return true
}

// Snapshot reports the current size, configured maximum, and active keys
// without copying or touching any socket.
type Snapshot struct {
	Size    int
	MaxSize int
	Keys    []string
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.order))
	for _, k := range r.order {
		keys = append(keys, k.String())
	}
	return Snapshot{Size: len(r.entries), MaxSize: r.maxSize, Keys: keys}
}

// Close tears down every pooled entry; used during graceful shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		r.dropLocked(key)
	}
}
