package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vjranagit/ecoatlas/pkg/api"
	"go.uber.org/zap"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chart API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.ListenAddr = addr
			}

			a, err := c.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.NewServer(c.cfg.Server.ListenAddr, a.dashboard, a.catalog, a.resolver, c.logger.Named("api"))
			server.SetTimeout(c.cfg.Server.Timeout)

			errCh := make(chan error, 1)
			go func() {
				c.logger.Info("API server listening", zap.String("addr", c.cfg.Server.ListenAddr))
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case err := <-errCh:
				return err
			case <-sigChan:
			}

			c.logger.Info("Shutdown signal received, stopping server")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Stop(ctx); err != nil {
				c.logger.Error("Server shutdown error", zap.Error(err))
				return err
			}
			c.logger.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
