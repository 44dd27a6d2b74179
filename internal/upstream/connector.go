// Package upstream dials fresh TCP sockets to remote endpoints with
// bounded retries and per-socket send/receive timeouts.
package upstream

import (
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"socketpoold/internal/pool"
)

const (
	dialTimeout = 2 * time.Second
	retryDelay  = 100 * time.Millisecond
)

// Kind distinguishes connector failure modes on the wire, per the error
// taxonomy in the spec.
type Kind string

const (
	KindSocketCreateFailed Kind = "socket_create_failed"
	KindConnectFailed      Kind = "connect_failed"
)

// Error wraps a connector failure with its wire-visible kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Connector opens fresh upstream TCP sockets.
type Connector struct {
	MaxRetries int
}

// New builds a Connector with the given connect-attempt budget.
func New(maxRetries int) *Connector {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Connector{MaxRetries: maxRetries}
}

// Dial opens a fresh keep-alive TCP socket to host:port, making up to
// MaxRetries connect attempts in total with a fixed delay between them. The returned
// Socket has send/receive timeouts applied per operation by the caller.
func (c *Connector) Dial(host string, port int) (pool.Socket, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	dialer := net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	var lastErr error
	for attempt := 0; attempt < c.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			lastErr = err
			var opErr *net.OpError
			if errors.As(err, &opErr) && opErr.Op == "dial" {
				zap.L().Debug("upstream: connect attempt failed",
					zap.String("addr", addr), zap.Int("attempt", attempt+1), zap.Error(err))
				continue
			}
			return nil, &Error{Kind: KindSocketCreateFailed, Err: err}
		}

		tcpConn, ok := conn.(*net.TCPConn)
		if !ok {
			_ = conn.Close()
			return nil, &Error{Kind: KindSocketCreateFailed, Err: fmt.Errorf("non-TCP connection to %s", addr)}
		}
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)

		return pool.NewTCPSocket(tcpConn), nil
	}

	return nil, &Error{Kind: KindConnectFailed, Err: fmt.Errorf("exhausted %d attempts to %s: %w", c.MaxRetries, addr, lastErr)}
}
