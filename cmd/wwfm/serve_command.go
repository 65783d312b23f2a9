package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wwfm/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the website",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			services, err := buildSite(cfg, logger)
			if err != nil {
				return err
			}
			server, err := services.server(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info("wwfm site starting",
				logging.String("bind", cfg.Server.Bind),
				logging.String("base_url", cfg.Server.BaseURL),
				logging.Bool("radiocult", services.radio != nil),
				logging.Bool("archive", services.archive != nil),
				logging.Bool("membership", services.members != nil),
			)
			if err := server.Serve(signalCtx); err != nil {
				logging.ErrorWithContext(logger, "site stopped with error", "server_failed", logging.Error(err))
				return err
			}
			logger.Info("wwfm site shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}
