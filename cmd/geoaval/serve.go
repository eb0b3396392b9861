package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"geoaval/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			logger := setupLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sessions, closeStore, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			runner, err := buildRunner(cfg, sessions, logger, "")
			if err != nil {
				return err
			}

			srv := server.New(runner, server.WithLogger(logger))

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen(cfg.ListenAddr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
				return srv.Shutdown()
			}
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address, overrides config")
	return cmd
}
