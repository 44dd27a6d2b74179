package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newMonitorCmd() *cobra.Command {
	var intervalS int
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Stream live pool stats from the admin websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL, err := adminWebsocketURL()
			if err != nil {
				return err
			}
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				return fmt.Errorf("connect to admin websocket: %w (is the admin surface enabled?)", err)
			}
			defer conn.Close()

			for {
				_, body, err := conn.ReadMessage()
				if err != nil {
					return fmt.Errorf("monitor stream closed: %w", err)
				}
				fmt.Println(string(body))
			}
		},
	}
	cmd.Flags().IntVar(&intervalS, "interval", 2, "requested refresh interval in seconds (advisory; server paces frames)")
	return cmd
}

func adminWebsocketURL() (string, error) {
	u, err := url.Parse(adminAddr)
	if err != nil {
		return "", fmt.Errorf("invalid --admin-addr: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported --admin-addr scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/admin/monitor/ws"
	return u.String(), nil
}
