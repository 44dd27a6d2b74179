package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"socketpoold/internal/ipcclient"
	"socketpoold/internal/ipcproto"
)

func newStatusCmd() *cobra.Command {
	var detailed bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, ok := readPID()
			if !ok || !processAlive(pid) {
				fmt.Println("status: not running")
				return nil
			}
			fmt.Printf("status: running (pid %d)\n", pid)
			if !detailed {
				return nil
			}
			resp, err := ipcclient.Call(socketPath, ipcproto.Request{Action: ipcproto.ActionGetMetrics})
			if err != nil {
				return fmt.Errorf("query daemon: %w", err)
			}
			return printJSON(resp.Data)
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include live metrics")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var watchSeconds int
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pool and endpoint statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			for {
				resp, err := ipcclient.Call(socketPath, ipcproto.Request{Action: ipcproto.ActionGetStats})
				if err != nil {
					return fmt.Errorf("query daemon: %w", err)
				}
				if !resp.Success {
					return fmt.Errorf("daemon error: %s", resp.Error)
				}
				var stats ipcproto.StatsResult
				if err := ipcclient.DecodeData(resp, &stats); err != nil {
					return err
				}
				if format == "json" {
					if err := printJSON(stats); err != nil {
						return err
					}
				} else {
					printStatsTable(stats)
				}
				if watchSeconds <= 0 {
					return nil
				}
				time.Sleep(time.Duration(watchSeconds) * time.Second)
			}
		},
	}
	cmd.Flags().IntVar(&watchSeconds, "watch", 0, "repeat every N seconds")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table|json")
	return cmd
}

func printStatsTable(s ipcproto.StatsResult) {
	fmt.Printf("pool_size=%d/%d instance=%s\n", s.PoolSize, s.MaxPoolSize, s.InstanceID)
	fmt.Printf("%-30s %10s %10s %10s\n", "ENDPOINT", "SUCCESS", "FAILED", "TOTAL")
	for endpoint, c := range s.ConnectionStats {
		fmt.Printf("%-30s %10d %10d %10d\n", endpoint, c.Success, c.Failed, c.Total)
	}
}

func newHealthCmd() *cobra.Command {
	var detailed bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run the daemon's health check",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ipcclient.Call(socketPath, ipcproto.Request{Action: ipcproto.ActionHealthCheck})
			if err != nil {
				return fmt.Errorf("query daemon: %w", err)
			}
			var health ipcproto.HealthResult
			if err := ipcclient.DecodeData(resp, &health); err != nil {
				return err
			}
			fmt.Printf("status: %s\n", health.Status)
			if detailed {
				return printJSON(health)
			}
			if health.Status != ipcproto.HealthHealthy {
				return fmt.Errorf("daemon reported status %s", health.Status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "print full health payload")
	return cmd
}

func printJSON(v interface{}) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	return nil
}
