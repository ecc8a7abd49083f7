package main

import (
	"context"
	"fmt"

	"github.com/craftwatch/statusbot/pkg/domain/minecraft"
	"github.com/craftwatch/statusbot/pkg/infrastructure/observability"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Print the server status once and exit",
		Long:  `The check command looks up the status of SERVER_IP (or --server) and prints the reply the bot would send. It does not need BOT_TOKEN.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if server != "" {
				cfg.ServerIP = server
			}
			if cfg.ServerIP == "" {
				return fmt.Errorf("no server given: set SERVER_IP or pass --server")
			}
			if err := cfg.ValidateCommon(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, cfg.CommandTimeout)
			defer cancel()

			status, err := newStatusClient(cfg, observability.NewMetrics()).Status(ctx, cfg.ServerIP)
			if err != nil {
				return fmt.Errorf("error checking server status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), minecraft.Render(status))
			return err
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server address, overrides SERVER_IP")
	return cmd
}
