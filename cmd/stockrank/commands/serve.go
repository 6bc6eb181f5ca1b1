package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockrank/internal/api"
	"github.com/wonny/stockrank/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `Starts the REST API server.

Endpoints:
  GET    /health                  - Health check
  GET    /metrics                 - Prometheus metrics
  GET    /api/ranking             - Run a report (?refresh=true&save=true&format=json|csv)
  GET    /api/ranking/runs        - Stored runs (?limit=20)
  GET    /api/ranking/runs/{id}   - One stored run
  GET    /api/cache               - Stock data cache status
  DELETE /api/cache               - Clear the stock data cache

Example:
  go run ./cmd/stockrank serve
  go run ./cmd/stockrank serve --port 8080`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{history: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireAccount(); err != nil {
		return err
	}
	if servePort != "" {
		a.cfg.Port = servePort
	}

	// history가 없으면 nil 인터페이스로 전달
	var hist handlers.HistoryReader
	if a.history != nil {
		hist = a.history
	}

	router := api.NewRouter(
		handlers.NewRankingHandler(a.orchestrator, hist, a.cfg.IBKR.AccountID, a.log),
		handlers.NewCacheHandler(a.cacher, a.cfg.IBKR.AccountID, a.log),
		a.metrics.Handler(),
		a.log,
	)
	server := api.New(a.cfg, a.log, api.WithCORS(router, a.cfg.CORSOrigins))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	printSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", a.cfg.Port))
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
