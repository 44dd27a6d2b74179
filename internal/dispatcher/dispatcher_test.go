package dispatcher

import (
	"errors"
	"testing"
	"time"

	"socketpoold/internal/ipcproto"
	"socketpoold/internal/pool"
	"socketpoold/internal/stats"
)

// fakeSocket is an in-memory Socket double that echoes a fixed reply and
// can be made to fail on demand, to exercise the dispatcher's drop-and-
// retry-once path without any real network I/O.
type fakeSocket struct {
	reply     []byte
	failWrite bool
	failRead  bool
	closed    bool
}

func (s *fakeSocket) Write(b []byte) (int, error) {
	if s.failWrite {
		return 0, errors.New("simulated write failure")
	}
	return len(b), nil
}
func (s *fakeSocket) Read(b []byte) (int, error) {
	if s.failRead {
		return 0, errors.New("simulated read failure")
	}
	n := copy(b, s.reply)
	return n, nil
}
func (s *fakeSocket) Close() error                  { s.closed = true; return nil }
func (s *fakeSocket) SetDeadline(t time.Time) error { return nil }
func (s *fakeSocket) Alive() bool                   { return !s.closed }

// fakeDialer returns a queue of sockets, one per Dial call, so a test can
// hand out a broken socket first and a healthy one on the retry.
type fakeDialer struct {
	sockets []pool.Socket
	calls   int
}

func (d *fakeDialer) Dial(host string, port int) (pool.Socket, error) {
	if d.calls >= len(d.sockets) {
		return nil, errors.New("fakeDialer: no more sockets queued")
	}
	s := d.sockets[d.calls]
	d.calls++
	return s, nil
}

func newTestDispatcher(dialer Dialer) *Dispatcher {
	return New(pool.NewRegistry(10), dialer, stats.NewTable(), "")
}

func TestSendGPSSucceedsOnFreshConnection(t *testing.T) {
	dialer := &fakeDialer{sockets: []pool.Socket{&fakeSocket{reply: []byte("ACK")}}}
	d := newTestDispatcher(dialer)

	resp := d.Dispatch(ipcproto.Request{
		Action: ipcproto.ActionSendGPS, Host: "10.0.0.1", Port: 9000, Message: "GPS1", VehicleID: "v1",
	})
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}
	result, ok := resp.Data.(ipcproto.SendGPSResult)
	if !ok {
		t.Fatalf("expected SendGPSResult, got %T", resp.Data)
	}
	if result.Response != "ACK" {
		t.Fatalf("expected response ACK, got %q", result.Response)
	}
	if resp.RequestID == "" {
		t.Fatal("expected a non-empty request_id")
	}
}

func TestSendGPSRetriesOnceAfterWriteFailure(t *testing.T) {
	dialer := &fakeDialer{sockets: []pool.Socket{
		&fakeSocket{failWrite: true},
		&fakeSocket{reply: []byte("ACK2")},
	}}
	d := newTestDispatcher(dialer)

	resp := d.Dispatch(ipcproto.Request{Action: ipcproto.ActionSendGPS, Host: "10.0.0.1", Port: 9000, Message: "GPS1"})
	if !resp.Success {
		t.Fatalf("expected retry to succeed, got error %q", resp.Error)
	}
	if dialer.calls != 2 {
		t.Fatalf("expected exactly 2 dial attempts (initial + retry), got %d", dialer.calls)
	}
}

func TestSendGPSFailsAfterRetryExhausted(t *testing.T) {
	dialer := &fakeDialer{sockets: []pool.Socket{
		&fakeSocket{failWrite: true},
		&fakeSocket{failWrite: true},
	}}
	d := newTestDispatcher(dialer)

	resp := d.Dispatch(ipcproto.Request{Action: ipcproto.ActionSendGPS, Host: "10.0.0.1", Port: 9000, Message: "GPS1"})
	if resp.Success {
		t.Fatal("expected failure after exhausting the single retry")
	}
	if resp.Error != "write_failed" {
		t.Fatalf("expected write_failed, got %q", resp.Error)
	}

	entries := d.Stats.Snapshot()
	if len(entries) != 1 || entries[0].Failed != 1 {
		t.Fatalf("expected one failed stat entry, got %+v", entries)
	}
}

func TestSendGPSValidatesRequest(t *testing.T) {
	d := newTestDispatcher(&fakeDialer{})
	resp := d.Dispatch(ipcproto.Request{Action: ipcproto.ActionSendGPS})
	if resp.Success || resp.Error != ipcproto.ErrInvalidRequest {
		t.Fatalf("expected invalid_request, got %+v", resp)
	}
}

func TestUnknownActionIsRejected(t *testing.T) {
	d := newTestDispatcher(&fakeDialer{})
	resp := d.Dispatch(ipcproto.Request{Action: "bogus"})
	if resp.Success || resp.Error != ipcproto.ErrUnknownAction {
		t.Fatalf("expected unknown_action, got %+v", resp)
	}
}

func TestCloseConnectionDropsEntry(t *testing.T) {
	dialer := &fakeDialer{sockets: []pool.Socket{&fakeSocket{reply: []byte("ACK")}}}
	d := newTestDispatcher(dialer)
	d.Dispatch(ipcproto.Request{Action: ipcproto.ActionSendGPS, Host: "10.0.0.1", Port: 9000, Message: "m"})

	resp := d.Dispatch(ipcproto.Request{Action: ipcproto.ActionCloseConnection, Host: "10.0.0.1", Port: 9000})
	if !resp.Success {
		t.Fatalf("expected close_connection to succeed, got %+v", resp)
	}
	snap := d.Registry.Snapshot()
	if snap.Size != 0 {
		t.Fatalf("expected pool empty after close_connection, got size %d", snap.Size)
	}
}

func TestGetStatsReportsPoolAndCounters(t *testing.T) {
	dialer := &fakeDialer{sockets: []pool.Socket{&fakeSocket{reply: []byte("ACK")}}}
	d := newTestDispatcher(dialer)
	d.Dispatch(ipcproto.Request{Action: ipcproto.ActionSendGPS, Host: "10.0.0.1", Port: 9000, Message: "m"})

	resp := d.Dispatch(ipcproto.Request{Action: ipcproto.ActionGetStats})
	result, ok := resp.Data.(ipcproto.StatsResult)
	if !ok {
		t.Fatalf("expected StatsResult, got %T", resp.Data)
	}
	entry, ok := result.ConnectionStats["10.0.0.1:9000"]
	if !ok || entry.Success != 1 {
		t.Fatalf("expected one recorded success for 10.0.0.1:9000, got %+v", result.ConnectionStats)
	}
	if result.PoolSize != 1 {
		t.Fatalf("expected pool_size 1, got %d", result.PoolSize)
	}
}

func TestHealthCheckHealthyWithoutUnixPathConfigured(t *testing.T) {
	d := newTestDispatcher(&fakeDialer{})
	resp := d.Dispatch(ipcproto.Request{Action: ipcproto.ActionHealthCheck})
	result, ok := resp.Data.(ipcproto.HealthResult)
	if !ok {
		t.Fatalf("expected HealthResult, got %T", resp.Data)
	}
	if result.Status != ipcproto.HealthHealthy {
		t.Fatalf("expected healthy status, got %s", result.Status)
	}
}
