package client

import (
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// startFakeDaemon serves one response (marshaled from handler's return
// value) per connection, letting tests drive client behavior without a
// real pool daemon.
func startFakeDaemon(t *testing.T, handler func(request) response) string {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "fake.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf := make([]byte, 4096)
				n, err := conn.Read(buf)
				if err != nil {
					return
				}
				var req request
				_ = json.Unmarshal(buf[:n], &req)
				resp := handler(req)
				body, _ := json.Marshal(resp)
				_, _ = conn.Write(body)
			}()
		}
	}()
	return sockPath
}

func TestSendGPSReturnsDecodedResult(t *testing.T) {
	sock := startFakeDaemon(t, func(req request) response {
		return response{Success: true, Data: SendGPSResult{Success: true, Response: "ACK", BytesSent: len(req.Message) + 1}}
	})
	c := New(Options{SocketPath: sock, RetryAttempts: 0})

	result, err := c.SendGPS("10.0.0.1", 9000, "GPS1", "v1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.Response != "ACK" {
		t.Fatalf("expected ACK, got %q", result.Response)
	}
}

func TestSendGPSRetriesOnDaemonFailureThenSucceeds(t *testing.T) {
	var calls int
	sock := startFakeDaemon(t, func(req request) response {
		calls++
		if calls == 1 {
			return response{Success: false, Error: "write_failed"}
		}
		return response{Success: true, Data: SendGPSResult{Success: true, Response: "ACK2"}}
	})
	c := New(Options{SocketPath: sock, RetryAttempts: 2, RetryDelay: time.Millisecond})

	result, err := c.SendGPS("10.0.0.1", 9000, "GPS1", "v1")
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if result.Response != "ACK2" {
		t.Fatalf("expected ACK2, got %q", result.Response)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	sock := startFakeDaemon(t, func(req request) response {
		return response{Success: false, Error: "connect_failed"}
	})
	c := New(Options{SocketPath: sock, RetryAttempts: 0, CircuitBreaker: true, CBThreshold: 2, CBTimeout: time.Hour})

	if _, err := c.SendGPS("10.0.0.1", 9000, "m1", ""); err == nil {
		t.Fatal("expected first call to fail")
	}
	if _, err := c.SendGPS("10.0.0.1", 9000, "m2", ""); err == nil {
		t.Fatal("expected second call to fail and trip the breaker")
	}

	_, err := c.SendGPS("10.0.0.1", 9000, "m3", "")
	if err != ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen on third call, got %v", err)
	}
}

func TestResultCacheSkipsRoundTripOnHit(t *testing.T) {
	var calls int
	sock := startFakeDaemon(t, func(req request) response {
		calls++
		return response{Success: true, Data: SendGPSResult{Success: true, Response: "ACK"}}
	})
	c := New(Options{SocketPath: sock, RetryAttempts: 0, CacheEnabled: true, CacheTTL: time.Minute})

	c.SendGPS("10.0.0.1", 9000, "same-message", "")
	c.SendGPS("10.0.0.1", 9000, "same-message", "")

	if calls != 1 {
		t.Fatalf("expected one round trip due to cache hit, got %d calls", calls)
	}
}

func TestSendBatchDispatchesAllRequests(t *testing.T) {
	sock := startFakeDaemon(t, func(req request) response {
		return response{Success: true, Data: SendGPSResult{Success: true, Response: "ACK"}}
	})
	c := New(Options{SocketPath: sock, RetryAttempts: 0})

	reqs := []BatchRequest{
		{Host: "10.0.0.1", Port: 9000, Message: "a"},
		{Host: "10.0.0.1", Port: 9001, Message: "b"},
		{Host: "10.0.0.1", Port: 9002, Message: "c"},
	}
	summary := c.SendBatch(reqs, 2)
	if summary.Total != 3 || summary.Successful != 3 || summary.Failed != 0 {
		t.Fatalf("expected all 3 to succeed, got %+v", summary)
	}
}
