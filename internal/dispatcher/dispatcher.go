// Package dispatcher implements the daemon's request-handling core: one
// Dispatch call per decoded IPC request, acting on the pool registry, the
// upstream connector, and the endpoint statistics table.
package dispatcher

import (
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"socketpoold/internal/config"
	"socketpoold/internal/idgen"
	"socketpoold/internal/ipcproto"
	"socketpoold/internal/pool"
	"socketpoold/internal/stats"
	"socketpoold/internal/upstream"
)

// CachePinger is the optional external-cache health probe, set by the
// bootstrap wiring only when the external cache is enabled. Modeled as a
// function value (rather than an import of internal/cache) to avoid a
// dependency cycle, mirroring the teacher's registered-callback style for
// optional subsystems.
type CachePinger func() bool

// Dialer opens a fresh upstream socket; satisfied by *upstream.Connector
// and substitutable in tests.
type Dialer interface {
	Dial(host string, port int) (pool.Socket, error)
}

// Dispatcher holds the daemon's mutable runtime state and satisfies every
// IPC action named in the wire contract.
type Dispatcher struct {
	Registry   *pool.Registry
	Connector  Dialer
	Stats      *stats.Table
	InstanceID string
	StartedAt  time.Time
	UnixPath   string

	CachePing  CachePinger
	peakMemory uint64
}

// New builds a Dispatcher bound to the given pool registry and connector.
func New(registry *pool.Registry, connector Dialer, statsTable *stats.Table, unixPath string) *Dispatcher {
	return &Dispatcher{
		Registry:   registry,
		Connector:  connector,
		Stats:      statsTable,
		InstanceID: idgen.NewInstanceID(),
		StartedAt:  time.Now(),
		UnixPath:   unixPath,
	}
}

// Dispatch routes a decoded request to its handler, wraps the result in
// the wire Response envelope, and stamps request_id/processing_time_ms.
// It never panics: a handler error becomes {success:false, error}.
func (d *Dispatcher) Dispatch(req ipcproto.Request) ipcproto.Response {
	start := time.Now()
	resp := d.dispatch(req)
	resp.RequestID = idgen.NewRequestID()
	resp.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	return resp
}

func (d *Dispatcher) dispatch(req ipcproto.Request) ipcproto.Response {
	switch req.Action {
	case ipcproto.ActionSendGPS:
		return d.handleSendGPS(req)
	case ipcproto.ActionGetStats:
		return d.handleGetStats()
	case ipcproto.ActionGetMetrics:
		return d.handleGetMetrics()
	case ipcproto.ActionCloseConnection:
		return d.handleCloseConnection(req)
	case ipcproto.ActionHealthCheck:
		return d.handleHealthCheck()
	case ipcproto.ActionGetConfig:
		return d.handleGetConfig()
	default:
		return fail(ipcproto.ErrUnknownAction)
	}
}

func fail(reason string) ipcproto.Response {
	return ipcproto.Response{Success: false, Error: reason}
}

func (d *Dispatcher) handleSendGPS(req ipcproto.Request) ipcproto.Response {
	if req.Host == "" || req.Port <= 0 || req.Message == "" {
		return fail(ipcproto.ErrInvalidRequest)
	}
	key := pool.Key{Host: req.Host, Port: uint16(req.Port)}

	reply, bytesSent, err := d.sendOnce(key, req.Message)
	if err != nil {
		// sendOnce already retires its own failed entry (see below);
		// retry once more via a fresh connection, per the dispatcher's
		// single-retry contract.
		reply, bytesSent, err = d.sendOnce(key, req.Message)
	}

	if err != nil {
		d.Stats.RecordFailure(key.String())
		zap.L().Warn("dispatcher: send_gps failed",
			zap.String("endpoint", key.String()), zap.Error(err))
		return fail(classifyError(err))
	}

	d.Stats.RecordSuccess(key.String())
	return ipcproto.Response{
		Success: true,
		Data: ipcproto.SendGPSResult{
			Success:     true,
			Response:    string(reply),
			HexResponse: hex.EncodeToString(reply),
			BytesSent:   bytesSent,
			VehicleID:   req.VehicleID,
			Timestamp:   time.Now().Unix(),
		},
	}
}

// sendOnce acquires (or opens) the pooled socket for key, writes the
// message with a trailing CR per the wire contract, and reads the reply.
//
// Acquire-miss and Insert can race: two concurrent sendOnce calls for the
// same never-before-seen key may both miss Acquire and both dial. Only
// one Insert wins; the loser closes its own surplus socket and retries
// Acquire against the winner's entry, treating a still-busy result as a
// miss rather than blocking (the registry's acquire-miss-not-block
// contract). This guarantees at most one goroutine ever holds a given
// key's entry at a time, so entry identity (not just key) is used for
// Release/DropEntry below.
func (d *Dispatcher) sendOnce(key pool.Key, message string) ([]byte, int, error) {
	entry, ok := d.Registry.Acquire(key)
	if !ok {
		sock, err := d.Connector.Dial(key.Host, int(key.Port))
		if err != nil {
			return nil, 0, err
		}
		entry, ok = d.Registry.Insert(key, sock)
		if !ok {
			// Lost the race to install this key's entry; our socket is
			// surplus. Fall back to acquiring the winner's entry.
			_ = sock.Close()
			entry, ok = d.Registry.Acquire(key)
			if !ok {
				return nil, 0, &upstream.Error{Kind: "pool_busy", Err: fmt.Errorf("endpoint %s busy", key.String())}
			}
		}
	}

	payload := []byte(message + "\r")
	_ = entry.Socket.SetDeadline(time.Now().Add(2 * time.Second))
	n, err := entry.Socket.Write(payload)
	if err != nil || n == 0 {
		if err == nil {
			err = fmt.Errorf("write_failed: wrote 0 bytes")
		}
		d.Registry.DropEntry(key, entry)
		return nil, 0, &upstream.Error{Kind: "write_failed", Err: err}
	}

	buf := make([]byte, maxResponseBytes())
	_ = entry.Socket.SetDeadline(time.Now().Add(2 * time.Second))
	rn, err := entry.Socket.Read(buf)
	if err != nil {
		d.Registry.DropEntry(key, entry)
		return nil, n, &upstream.Error{Kind: "read_failed", Err: err}
	}

	d.Registry.Release(key, entry)
	return buf[:rn], n, nil
}

func maxResponseBytes() int {
	if config.Conf.Pool.MaxResponseBytes > 0 {
		return config.Conf.Pool.MaxResponseBytes
	}
	return 2048
}

func classifyError(err error) string {
	if uerr, ok := err.(*upstream.Error); ok {
		return string(uerr.Kind)
	}
	return ipcproto.ErrInternal
}

func (d *Dispatcher) handleGetStats() ipcproto.Response {
	snap := d.Registry.Snapshot()
	connStats := make(map[string]ipcproto.ConnectionStatsEntry, len(snap.Keys))
	for _, e := range d.Stats.Snapshot() {
		connStats[e.Endpoint] = ipcproto.ConnectionStatsEntry{Success: e.Success, Failed: e.Failed, Total: e.Total}
	}
	return ipcproto.Response{
		Success: true,
		Data: ipcproto.StatsResult{
			PoolSize:          snap.Size,
			MaxPoolSize:       snap.MaxSize,
			ConnectionStats:   connStats,
			ActiveConnections: snap.Keys,
			InstanceID:        d.InstanceID,
		},
	}
}

func (d *Dispatcher) handleGetMetrics() ipcproto.Response {
	snap := d.Registry.Snapshot()
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	if mem.Alloc > d.peakMemory {
		d.peakMemory = mem.Alloc
	}
	return ipcproto.Response{
		Success: true,
		Data: ipcproto.MetricsResult{
			PoolSize:    snap.Size,
			MaxPoolSize: snap.MaxSize,
			InstanceID:  d.InstanceID,
			UptimeS:     time.Since(d.StartedAt).Seconds(),
			MemoryUsage: mem.Alloc,
			PeakMemory:  d.peakMemory,
		},
	}
}

func (d *Dispatcher) handleCloseConnection(req ipcproto.Request) ipcproto.Response {
	if req.Host == "" || req.Port <= 0 {
		return fail(ipcproto.ErrInvalidRequest)
	}
	d.Registry.Drop(pool.Key{Host: req.Host, Port: uint16(req.Port)})
	return ipcproto.Response{Success: true}
}

func (d *Dispatcher) handleHealthCheck() ipcproto.Response {
	status := ipcproto.HealthHealthy
	ipcSocketOK := true
	if d.UnixPath != "" {
		if _, err := os.Stat(d.UnixPath); err != nil {
			ipcSocketOK = false
			status = ipcproto.HealthUnhealthy
		}
	}

	var cacheOK *bool
	if d.CachePing != nil {
		ok := d.CachePing()
		cacheOK = &ok
		if !ok && status == ipcproto.HealthHealthy {
			status = ipcproto.HealthDegraded
		}
	}

	snap := d.Registry.Snapshot()
	return ipcproto.Response{
		Success: true,
		Data: ipcproto.HealthResult{
			Status:     status,
			InstanceID: d.InstanceID,
			Timestamp:  time.Now().Unix(),
			Checks: ipcproto.HealthChecks{
				IPCSocket:         ipcSocketOK,
				ExternalCache:     cacheOK,
				ActiveConnections: snap.Size,
			},
		},
	}
}

func (d *Dispatcher) handleGetConfig() ipcproto.Response {
	return ipcproto.Response{Success: true, Data: config.Conf.Redacted()}
}
