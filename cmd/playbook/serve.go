package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/caseflow/playbook/internal/cli"
	httpadapter "github.com/caseflow/playbook/pkg/adapters/http"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the decision engine in server mode, exposing a JSON API with a
per-session SSE event stream, embedded OpenAPI documentation at /swagger,
and optional Prometheus metrics at /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}

		// Decisions made over any transport reach SSE subscribers through
		// the stream manager's hooks.
		streams := httpadapter.NewStreamManager()
		hooks := []domain.LifecycleHooks{streams.Hooks()}
		serverOpts := []httpadapter.Option{httpadapter.WithStreamManager(streams)}

		if cfg.Server.Metrics {
			metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
			hooks = append(hooks, metrics.Hooks())
			serverOpts = append(serverOpts, httpadapter.WithMetricsHandler(promhttp.Handler()))
		}

		rt, err := cli.BuildRuntime(cfg, nil, hooks...)
		if err != nil {
			fmt.Printf("Error initializing engine: %v\n", err)
			os.Exit(1)
		}
		defer rt.Close()

		serverOpts = append(serverOpts, httpadapter.WithLogger(rt.Logger))
		handler := httpadapter.NewHandler(rt.Engine, rt.Provider, serverOpts...)

		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Playbook Server on %s\n", srv.Addr)
			fmt.Printf("Serving playbooks from: %s\n", cfg.Playbooks.Dir)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", cfg.Server.ShutdownTimeout, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Playbook Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides server.addr)")
}
