package upstream

import (
	"net"
	"testing"
)

func TestDialSucceedsAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test listener: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	c := New(3)
	sock, err := c.Dial("127.0.0.1", addr.Port)
	if err != nil {
		t.Fatalf("expected dial to succeed, got %v", err)
	}
	defer sock.Close()
}

func TestDialFailsOnUnreachablePort(t *testing.T) {
	c := New(2)
	_, err := c.Dial("127.0.0.1", 1)
	if err == nil {
		t.Fatal("expected dial to an unreachable port to fail")
	}
	cerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cerr.Kind != KindConnectFailed {
		t.Fatalf("expected connect_failed, got %s", cerr.Kind)
	}
}
