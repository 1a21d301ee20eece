package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nurpath/nurpath/internal/observability"
	"github.com/nurpath/nurpath/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question-answering API",
	Long: `Serve starts the HTTP API:
- POST /v1/ask answers a question with cited evidence or abstains
- GET /v1/sources lists catalog sources with filters
- GET /v1/health/retrieval and /v1/diagnostics report pipeline health
- GET /metrics exposes Prometheus metrics

The embedder and index must agree on vector dimension or the server
refuses to start. SIGHUP reloads the catalog.

Example:
  nurpath serve
  nurpath serve --addr :9000 --catalog ./catalog.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, true)

	shutdownTracing, err := observability.SetupTracing(cfg.Telemetry, version)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := a.pipeline.CheckContract(ctx); err != nil {
		return fmt.Errorf("startup check: %w", err)
	}

	go a.reloadOnHangup(ctx)

	srv := server.New(a.pipeline, a.store, cfg.Server, server.Options{
		Gatherer:    a.registry,
		ServiceName: cfg.Telemetry.ServiceName,
		Logger:      logger,
	})
	return srv.Run(ctx)
}

// reloadOnHangup swaps in a fresh catalog on every SIGHUP until ctx is done
func (a *app) reloadOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cat, err := a.store.Reload(a.cfg.Catalog.Path)
			if err != nil {
				a.logger.Error("catalog reload failed, keeping previous snapshot", "path", a.cfg.Catalog.Path, "error", err)
				continue
			}
			a.logger.Info("catalog reloaded", "passages", cat.Len(), "excluded", len(cat.Excluded()), "version", cat.Version())
			if a.index.Name() != "memory" {
				continue
			}
			if _, err := a.indexCatalog(ctx, true); err != nil {
				a.logger.Error("re-index after reload failed", "error", err)
			}
		}
	}
}
