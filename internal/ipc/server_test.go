package ipc

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"socketpoold/internal/ipcproto"
)

type echoHandler struct{}

func (echoHandler) Dispatch(req ipcproto.Request) ipcproto.Response {
	if req.Action == ipcproto.ActionHealthCheck {
		return ipcproto.Response{Success: true, RequestID: "test-req"}
	}
	return ipcproto.Response{Success: false, Error: ipcproto.ErrUnknownAction}
}

func TestServerRoundTrip(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	srv := New(echoHandler{}, sockPath)
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
		srv.Close()
	}()

	conn, err := net.DialTimeout("unix", sockPath, time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	req, _ := json.Marshal(ipcproto.Request{Action: ipcproto.ActionHealthCheck})
	if _, err := conn.Write(req); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	buf := make([]byte, 8192)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var resp ipcproto.Response
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
}

func TestListenClearsStaleSocketFile(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "stale.sock")
	if f, err := os.Create(sockPath); err == nil {
		f.Close()
	}

	srv := New(echoHandler{}, sockPath)
	if err := srv.Listen(); err != nil {
		t.Fatalf("expected stale regular file to be cleared, got: %v", err)
	}
	if srv.Path() != sockPath {
		t.Fatalf("expected to bind the original path, got %s", srv.Path())
	}
	srv.listener.Close()
	srv.Close()
}
