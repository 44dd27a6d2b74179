// Command poolctl is the operator-facing CLI for the connection-pool
// daemon: every subcommand is a thin wrapper dialing the IPC socket (or
// the admin websocket for monitor) — no business logic lives here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	socketPath string
	pidFile    string
	adminAddr  string
)

func main() {
	root := &cobra.Command{
		Use:           "poolctl",
		Short:         "Operate the socket-pool daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", "/tmp/socket_pool_service.sock", "daemon IPC socket path")
	root.PersistentFlags().StringVar(&pidFile, "pid-file", "/tmp/socket_pool_service.pid", "daemon PID file")
	root.PersistentFlags().StringVar(&adminAddr, "admin-addr", "http://127.0.0.1:9600", "admin HTTP/websocket base address")

	root.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newRestartCmd(),
		newStatusCmd(),
		newStatsCmd(),
		newHealthCmd(),
		newPoolCmd(),
		newTestCmd(),
		newConfigCmd(),
		newMonitorCmd(),
		newInstallCmd(),
		newBackupCmd(),
		newCacheClearCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "poolctl:", err)
		os.Exit(1)
	}
}
