// Package stats tracks per-endpoint send counters and exposes them both
// over the IPC get_stats action and as Prometheus gauges.
package stats

import (
	"sync"
	"sync/atomic"

	"github.com/dustinxie/lockfree"
)

// Counters holds one endpoint's lifetime send counts. Fields are updated
// with atomics so concurrent dispatcher goroutines never need a lock to
// bump a single endpoint's counters.
type Counters struct {
	Success int64
	Failed  int64
}

func (c *Counters) addSuccess() { atomic.AddInt64(&c.Success, 1) }
func (c *Counters) addFailed()  { atomic.AddInt64(&c.Failed, 1) }

func (c *Counters) snapshot() (success, failed int64) {
	return atomic.LoadInt64(&c.Success), atomic.LoadInt64(&c.Failed)
}

// Table is the process-wide endpoint -> Counters map. It is backed by a
// lock-free hash map (rather than sync.Map or a mutex-guarded map) since
// the dispatcher's hot path does a lookup-or-insert on every request and
// this concern matches the teacher stack's connection-tracking tables
// closely enough to reuse the same concurrent-map dependency.
type Table struct {
	m        lockfree.HashMap
	createMu sync.Mutex // serializes first-time inserts in get
}

// NewTable builds an empty endpoint stats table.
func NewTable() *Table {
	return &Table{m: lockfree.NewHashMap()}
}

func (t *Table) get(endpoint string) *Counters {
	if v, ok := t.m.Get(endpoint); ok {
		return v.(*Counters)
	}
	// Get-or-create races benignly: creation is serialized and re-checks
	// the map, so a caller that lost the race gets the winner's Counters.
	t.createMu.Lock()
	defer t.createMu.Unlock()
	if v, ok := t.m.Get(endpoint); ok {
		return v.(*Counters)
	}
	c := &Counters{}
	t.m.Set(endpoint, c)
	return c
}

// RecordSuccess increments an endpoint's success and total counters.
func (t *Table) RecordSuccess(endpoint string) {
	t.get(endpoint).addSuccess()
}

// RecordFailure increments an endpoint's failure and total counters.
func (t *Table) RecordFailure(endpoint string) {
	t.get(endpoint).addFailed()
}

// Entry is one endpoint's snapshot row, keyed by "host:port".
type Entry struct {
	Endpoint string
	Success  int64
	Failed   int64
	Total    int64
}

// Snapshot returns every tracked endpoint's current counters.
func (t *Table) Snapshot() []Entry {
	var out []Entry
	t.m.Lock()
	for {
		key, value, ok := t.m.Next()
		if !ok {
			break
		}
		c := value.(*Counters)
		s, f := c.snapshot()
		out = append(out, Entry{Endpoint: key.(string), Success: s, Failed: f, Total: s + f})
	}
	t.m.Unlock()
	return out
}

// Reset clears every endpoint's counters.
func (t *Table) Reset() {
	var keys []interface{}
	t.m.Lock()
	for {
		key, _, ok := t.m.Next()
		if !ok {
			break
		}
		keys = append(keys, key)
	}
	t.m.Unlock()
	for _, key := range keys {
		t.m.Del(key)
	}
}
