// Package idgen mints the daemon's two id shapes: opaque Snowflake ids for
// log-only identifiers (connection ids), and RFC 4122 UUIDs for the wire
// contract's instance_id and request_id fields.
package idgen

import (
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var node *snowflake.Node

func init() {
	// Single node, id 1: the daemon runs as one process per host, so a
	// fixed node id is sufficient (mirrors the chat-send repo's approach).
	n, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	node = n
}

// NextConnectionID returns an opaque, monotonically-increasing identifier
// for a freshly pooled connection entry, suitable for log correlation.
func NextConnectionID() int64 {
	return node.Generate().Int64()
}

// NewInstanceID returns a fresh UUID for daemon-process identification,
// assigned once at startup and embedded in metrics and health output.
func NewInstanceID() string {
	return uuid.NewString()
}

// NewRequestID returns a fresh UUID for one IPC request/response pair.
func NewRequestID() string {
	return uuid.NewString()
}
