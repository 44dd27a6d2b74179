// Package lifecycle drives the daemon's run loop and signal-triggered
// graceful shutdown, grounded on cmd/gateway/main.go's signal.Notify +
// context.WithTimeout(5s) shutdown sequence.
package lifecycle

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"socketpoold/internal/bootstrap"
)

const shutdownTimeout = 5 * time.Second

// Run starts the IPC accept loop, the maintenance ticks, and (if
// configured) the admin HTTP server, then blocks until SIGINT/SIGTERM,
// draining all three before returning.
func Run(app *bootstrap.App) {
	ctx, cancel := context.WithCancel(context.Background())

	ipcDone := make(chan struct{})
	go func() {
		defer close(ipcDone)
		if err := app.IPCServer.Serve(ctx); err != nil {
			zap.L().Error("lifecycle: ipc server exited with error", zap.Error(err))
		}
	}()

	maintDone := make(chan struct{})
	go func() {
		defer close(maintDone)
		app.Maintainer.Run(ctx)
	}()

	var adminSrv *http.Server
	if app.Admin != nil {
		adminSrv = &http.Server{Addr: app.Config.Admin.Addr, Handler: app.Admin.Handler()}
		go func() {
			zap.L().Info("lifecycle: admin server starting", zap.String("addr", app.Config.Admin.Addr))
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zap.L().Error("lifecycle: admin server error", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("lifecycle: shutdown signal received")

	cancel()

	if adminSrv != nil {
		shCtx, shCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := adminSrv.Shutdown(shCtx); err != nil {
			zap.L().Warn("lifecycle: admin server shutdown error", zap.Error(err))
		}
		shCancel()
	}

	waitWithTimeout(ipcDone, shutdownTimeout)
	waitWithTimeout(maintDone, shutdownTimeout)

	zap.L().Info("lifecycle: shutdown complete")
}

func waitWithTimeout(done <-chan struct{}, timeout time.Duration) {
	select {
	case <-done:
	case <-time.After(timeout):
		zap.L().Warn("lifecycle: shutdown wait timed out")
	}
}
