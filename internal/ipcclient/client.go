// Package ipcclient is the thin Unix-socket transport shared by cmd/poolctl
// subcommands: dial, write one JSON request, read one JSON response,
// close. No retry/circuit-breaker logic lives here — that belongs to the
// client/ library used by application code talking to the daemon.
package ipcclient

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"socketpoold/internal/ipcproto"
)

const (
	readBufSize = 8192
	dialTimeout = 2 * time.Second
	ioTimeout   = 5 * time.Second
)

// Call dials path, sends req as JSON, and decodes the single response.
func Call(path string, req ipcproto.Request) (ipcproto.Response, error) {
	var resp ipcproto.Response

	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return resp, fmt.Errorf("connect to daemon at %s: %w", path, err)
	}
	defer conn.Close()

	body, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("encode request: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(ioTimeout))
	if _, err := conn.Write(body); err != nil {
		return resp, fmt.Errorf("write request: %w", err)
	}

	buf := make([]byte, readBufSize)
	_ = conn.SetReadDeadline(time.Now().Add(ioTimeout))
	n, err := conn.Read(buf)
	if err != nil {
		return resp, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// DecodeData re-marshals resp.Data into out, for commands that need a
// typed view of the payload (e.g. ipcproto.StatsResult).
func DecodeData(resp ipcproto.Response, out interface{}) error {
	body, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
