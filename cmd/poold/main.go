// Command poold is the connection-pool daemon: it owns the local IPC
// socket, the upstream TCP pool, and (optionally) the admin HTTP surface.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"socketpoold/internal/bootstrap"
	"socketpoold/internal/lifecycle"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to daemon config yaml")
	flag.Parse()

	app, cleanup, err := bootstrap.InitAll(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poold: failed to start: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	zap.L().Info("poold: starting",
		zap.String("instance_id", app.Dispatcher.InstanceID),
		zap.String("ipc_path", app.IPCServer.Path()))

	lifecycle.Run(app)
}
