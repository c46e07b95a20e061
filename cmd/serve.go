package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"auction-crawler/handler"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search and generation modes over HTTP",
		Long: `Starts an HTTP server exposing:

  POST /auctions           scrape search (JSON request body, all fields optional)
  POST /auctions/generate  LLM-generated listings
  GET  /healthcheck
  GET  /metrics            Prometheus metrics`,
		Example: `  # Listen on LISTEN_ADDR (default :8080)
  auction-crawler serve

  # Listen on a custom address
  auction-crawler serve --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.ListenAddr
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           handler.NewRouter(a.handler),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				a.logger.Info("[serve] Listening on %s", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				a.logger.Info("[serve] Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("[serve] Server shutdown failed: %v", err)
					return err
				}
				a.logger.Info("[serve] Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Address to listen on (default from LISTEN_ADDR)")

	return cmd
}
