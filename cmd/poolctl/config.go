package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"socketpoold/internal/config"
	"socketpoold/internal/ipcclient"
	"socketpoold/internal/ipcproto"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config <show|get|set|validate>",
		Short: "Inspect the daemon's effective configuration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "show":
				return configShow()
			case "get":
				if len(args) < 2 {
					return fmt.Errorf("config get requires a key")
				}
				return configGet(args[1])
			case "set":
				return fmt.Errorf("config set is not supported over IPC; edit the config file, which hot-reloads")
			case "validate":
				path := "config.yaml"
				if len(args) > 1 {
					path = args[1]
				}
				return configValidate(path)
			default:
				return fmt.Errorf("unknown config subcommand %q", args[0])
			}
		},
	}
}

func configShow() error {
	resp, err := ipcclient.Call(socketPath, ipcproto.Request{Action: ipcproto.ActionGetConfig})
	if err != nil {
		return fmt.Errorf("query daemon: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	return printJSON(resp.Data)
}

func configGet(key string) error {
	resp, err := ipcclient.Call(socketPath, ipcproto.Request{Action: ipcproto.ActionGetConfig})
	if err != nil {
		return fmt.Errorf("query daemon: %w", err)
	}
	m, ok := resp.Data.(map[string]interface{})
	if !ok {
		return printJSON(resp.Data)
	}
	v, found := m[key]
	if !found {
		return fmt.Errorf("unknown config key %q", key)
	}
	fmt.Println(v)
	return nil
}

func configValidate(path string) error {
	if err := config.InitFromFile(path); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	fmt.Printf("%s is valid\n", path)
	return nil
}
