package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/tessera/internal/cli"
	httpAdapter "github.com/aretw0/tessera/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control plane",
	Long: `Starts the engine with every adapter tessera.yaml enables and exposes the
REST API, the WebSocket report feed and Prometheus metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := loadApp(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.Server.Addr
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}
		srv := &http.Server{
			Addr: addr,
			Handler: httpAdapter.NewHandler(app.Engine,
				httpAdapter.WithFeed(app.Feed),
				httpAdapter.WithGatherer(app.Registry),
				httpAdapter.WithLogger(app.Engine.Logger()),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Starting Tessera Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		runErrors := make(chan error, 1)
		go func() { runErrors <- app.Run(sigCtx) }()

		select {
		case err := <-serverErrors:
			sigCtx.Cancel()
			return fmt.Errorf("server error: %w", err)
		case err := <-runErrors:
			if err != nil {
				return err
			}
		case <-sigCtx.Done():
		}

		if sig := sigCtx.Signal(); sig != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "\nStart shutdown... Signal: %v\n", sig)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", 5*time.Second, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Tessera Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides server.addr)")
}
