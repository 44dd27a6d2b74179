package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"socketpoold/internal/ipcclient"
	"socketpoold/internal/ipcproto"
)

func newTestCmd() *cobra.Command {
	var host string
	var port int
	var count int
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send test GPS messages through the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			if host == "" || port == 0 {
				return fmt.Errorf("--host and --port are required")
			}
			var failures int
			for i := 0; i < count; i++ {
				resp, err := ipcclient.Call(socketPath, ipcproto.Request{
					Action:  ipcproto.ActionSendGPS,
					Host:    host,
					Port:    port,
					Message: fmt.Sprintf("TEST,%d", i),
				})
				if err != nil {
					failures++
					fmt.Printf("[%d] transport error: %v\n", i, err)
					continue
				}
				if !resp.Success {
					failures++
					fmt.Printf("[%d] error: %s\n", i, resp.Error)
					continue
				}
				var result ipcproto.SendGPSResult
				_ = ipcclient.DecodeData(resp, &result)
				fmt.Printf("[%d] ok: response=%q bytes_sent=%d\n", i, result.Response, result.BytesSent)
			}
			fmt.Printf("%d/%d succeeded\n", count-failures, count)
			if failures > 0 {
				return fmt.Errorf("%d of %d test sends failed", failures, count)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "target host")
	cmd.Flags().IntVar(&port, "port", 0, "target port")
	cmd.Flags().IntVar(&count, "count", 1, "number of test messages to send")
	return cmd
}
