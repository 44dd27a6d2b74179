package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"socketpoold/internal/ipcclient"
	"socketpoold/internal/ipcproto"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Print guidance for installing poold as a system service",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Service-unit provisioning is explicitly out of this daemon's
			// scope; poolctl only documents the expected invocation.
			fmt.Println("poold is not installed as a system service by this tool.")
			fmt.Println("Run the poold binary directly, or wrap it with your platform's service manager, e.g.:")
			fmt.Println("  ExecStart=/usr/local/bin/poold --config /etc/socket_pool/config.yaml")
			return nil
		},
	}
}

func newBackupCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot current pool statistics to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The daemon holds no durable state beyond its in-memory
			// counters, so a backup is a point-in-time stats export, not a
			// restorable data dump.
			resp, err := ipcclient.Call(socketPath, ipcproto.Request{Action: ipcproto.ActionGetStats})
			if err != nil {
				return fmt.Errorf("query daemon: %w", err)
			}
			if !resp.Success {
				return fmt.Errorf("daemon error: %s", resp.Error)
			}
			body, err := json.MarshalIndent(resp.Data, "", "  ")
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("socket_pool_stats_%d.json", time.Now().Unix())
			}
			if err := os.WriteFile(out, body, 0644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file path (default: timestamped in cwd)")
	return cmd
}
