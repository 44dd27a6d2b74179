// Package pool implements the bounded, LRU-evicted registry of pooled
// upstream TCP connections keyed by endpoint.
package pool

import "fmt"

// Key identifies a pooled upstream endpoint by host and port.
type Key struct {
	Host string
	Port uint16
}

// String renders the canonical "host:port" serialization used as the
// pool index and in stats/snapshot output.
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Host, k.Port)
}
