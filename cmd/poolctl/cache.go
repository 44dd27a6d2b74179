package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"socketpoold/internal/cache"
	"socketpoold/internal/config"
)

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache:clear",
		Short: "Clear the external metrics-history cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !config.Conf.Redis.Enabled {
				return fmt.Errorf("external cache is not enabled (redis.enabled = false)")
			}
			client := cache.New(config.Conf.Redis)
			defer client.Close()
			if err := client.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Println("cache cleared")
			return nil
		},
	}
}
