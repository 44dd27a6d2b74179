// Package ipc owns the daemon's local Unix-domain request/response
// listener: one JSON request in, one JSON response out, per connection.
package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"socketpoold/internal/idgen"
	"socketpoold/internal/ipcproto"
)

const (
	readBufSize = 4096
	backlog     = 128
)

// Handler processes one decoded request and returns the response to
// write back. Satisfied by *dispatcher.Dispatcher.
type Handler interface {
	Dispatch(req ipcproto.Request) ipcproto.Response
}

// Server owns the Unix listener and the per-client goroutine fan-out.
type Server struct {
	handler Handler
	path    string

	listener *net.UnixListener
	wg       sync.WaitGroup
}

// New prepares (without yet binding) a Server for the given socket path.
func New(handler Handler, path string) *Server {
	return &Server{handler: handler, path: path}
}

// Path returns the socket path actually bound, which may differ from the
// one requested if a PID-suffixed fallback was used.
func (s *Server) Path() string { return s.path }

// Listen binds the Unix listener, clearing a stale socket file first.
func (s *Server) Listen() error {
	if err := clearStalePath(s.path); err != nil {
		fallback := fmt.Sprintf("%s_%d.sock", trimSockSuffix(s.path), os.Getpid())
		zap.L().Warn("ipc: could not reclaim configured socket path, falling back",
			zap.String("path", s.path), zap.String("fallback", fallback), zap.Error(err))
		s.path = fallback
	}

	addr, err := net.ResolveUnixAddr("unix", s.path)
	if err != nil {
		return fmt.Errorf("ipc: resolve addr %s: %w", s.path, err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("ipc: listen on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0666); err != nil {
		zap.L().Warn("ipc: chmod 0666 failed", zap.String("path", s.path), zap.Error(err))
	}
	s.listener = ln
	zap.L().Info("ipc: listening", zap.String("path", s.path))
	return nil
}

func trimSockSuffix(path string) string {
	const suffix = ".sock"
	if len(path) > len(suffix) && path[len(path)-len(suffix):] == suffix {
		return path[:len(path)-len(suffix)]
	}
	return path
}

// clearStalePath removes a pre-existing socket file so the listener can
// rebind to it; unlink is tried first, then a chmod+unlink retry, per the
// stale-socket recovery policy.
func clearStalePath(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.Remove(path); err == nil {
		return nil
	}
	if err := os.Chmod(path, 0666); err != nil {
		return err
	}
	return os.Remove(path)
}

// Serve runs the accept loop until ctx is cancelled. Each accepted client
// is handled in its own goroutine: exactly one request/response round
// trip, then the connection is closed. Serve blocks until all in-flight
// handlers have drained after ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				zap.L().Warn("ipc: accept error", zap.Error(err))
				continue
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn *net.UnixConn) {
	defer conn.Close()

	resp := s.readAndDispatch(conn)
	if resp.RequestID == "" {
		resp.RequestID = idgen.NewRequestID()
	}
	body, err := json.Marshal(resp)
	if err != nil {
		zap.L().Error("ipc: failed to marshal response", zap.Error(err))
		body, _ = json.Marshal(ipcproto.Response{Success: false, Error: ipcproto.ErrInternal})
	}
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(body); err != nil {
		zap.L().Debug("ipc: write to client failed", zap.Error(err))
	}
}

func (s *Server) readAndDispatch(conn *net.UnixConn) (resp ipcproto.Response) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("ipc: handler panic recovered", zap.Any("panic", r))
			resp = ipcproto.Response{Success: false, Error: ipcproto.ErrInternal}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, readBufSize)
	n, err := conn.Read(buf)
	if err != nil {
		return ipcproto.Response{Success: false, Error: ipcproto.ErrInvalidRequest}
	}

	var req ipcproto.Request
	if err := json.Unmarshal(buf[:n], &req); err != nil {
		return ipcproto.Response{Success: false, Error: ipcproto.ErrInvalidJSON}
	}

	return s.handler.Dispatch(req)
}

// Close unlinks the bound socket path; safe to call after Serve returns.
func (s *Server) Close() {
	if s.path != "" {
		_ = os.Remove(s.path)
	}
}
