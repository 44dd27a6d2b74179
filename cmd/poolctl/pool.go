package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"socketpoold/internal/ipcclient"
	"socketpoold/internal/ipcproto"
)

func newPoolCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "pool <list|close|warm-up|drain> [target]",
		Short: "Inspect or manage pooled connections",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "list":
				return poolList()
			case "close":
				if all {
					return poolDrain()
				}
				if len(args) < 2 {
					return fmt.Errorf("pool close requires a target host:port, or --all")
				}
				return poolClose(args[1])
			case "warm-up":
				if len(args) < 2 {
					return fmt.Errorf("pool warm-up requires a target host:port")
				}
				return poolWarmUp(args[1])
			case "drain":
				return poolDrain()
			default:
				return fmt.Errorf("unknown pool subcommand %q", args[0])
			}
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "apply to every pooled endpoint")
	return cmd
}

func poolList() error {
	resp, err := ipcclient.Call(socketPath, ipcproto.Request{Action: ipcproto.ActionGetStats})
	if err != nil {
		return fmt.Errorf("query daemon: %w", err)
	}
	var stats ipcproto.StatsResult
	if err := ipcclient.DecodeData(resp, &stats); err != nil {
		return err
	}
	for _, key := range stats.ActiveConnections {
		fmt.Println(key)
	}
	return nil
}

func poolClose(target string) error {
	host, port, err := splitHostPort(target)
	if err != nil {
		return err
	}
	resp, err := ipcclient.Call(socketPath, ipcproto.Request{Action: ipcproto.ActionCloseConnection, Host: host, Port: port})
	if err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	fmt.Printf("closed %s\n", target)
	return nil
}

func poolDrain() error {
	resp, err := ipcclient.Call(socketPath, ipcproto.Request{Action: ipcproto.ActionGetStats})
	if err != nil {
		return fmt.Errorf("query daemon: %w", err)
	}
	var stats ipcproto.StatsResult
	if err := ipcclient.DecodeData(resp, &stats); err != nil {
		return err
	}
	for _, key := range stats.ActiveConnections {
		if err := poolClose(key); err != nil {
			fmt.Printf("warning: failed to close %s: %v\n", key, err)
		}
	}
	return nil
}

func poolWarmUp(target string) error {
	// The daemon has no dedicated prewarm action; a connection is only
	// opened lazily on the first send_gps. Reporting this plainly rather
	// than faking a round trip that would misrepresent daemon state.
	fmt.Printf("no-op: %s will be dialed lazily on its first send_gps request\n", target)
	return nil
}

func splitHostPort(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, fmt.Errorf("target must be host:port: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}
