package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	accountID    string
	strategyPath string
	parallel     bool
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockrank",
	Short: "IBKR 포트폴리오 멀티팩터 랭킹",
	Long: `stockrank ranks the stocks of an Interactive Brokers portfolio.

Every configured factor ranker scores the tickers it has data for in [0, 1]
by position, and the composite score is the plain sum over rankers.

Usage:
  go run ./cmd/stockrank [command]

Examples:
  go run ./cmd/stockrank report
  go run ./cmd/stockrank report --no-cache --format csv
  go run ./cmd/stockrank serve --port 8089
  go run ./cmd/stockrank scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&accountID, "account", "", "IBKR account id (default IBKR_ACCOUNT_ID)")
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", "", "strategy YAML (default STRATEGY_PATH, built-in when empty)")
	rootCmd.PersistentFlags().BoolVar(&parallel, "parallel", false, "run factor rankers concurrently")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
