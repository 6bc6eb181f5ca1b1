package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockrank/internal/report"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "저장된 랭킹 실행 이력",
	Long: `PostgreSQL에 저장된 랭킹 실행 이력을 조회합니다. DATABASE_URL이 필요합니다.

Example:
  go run ./cmd/stockrank history list --limit 10
  go run ./cmd/stockrank history show <run_id> --format json`,
}

var (
	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 실행 목록",
		RunE:  runHistoryList,
	}

	historyShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "실행 결과 상세",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
)

var (
	historyLimit  int
	historyFormat string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	historyShowCmd.Flags().StringVar(&historyFormat, "format", "table", "output format (table, json, csv, markdown)")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{requireHistory: true})
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.history.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		printWarning(out, "No saved runs")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-19s  %-12s  %7s  %s\n", "RUN ID", "STARTED", "STRATEGY", "TICKERS", "TOP")
	printSeparator(out)
	for _, run := range runs {
		fmt.Fprintf(out, "%-36s  %-19s  %-12s  %7d  %s\n",
			run.RunID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.StrategyID,
			run.Tickers,
			run.TopTicker,
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(historyFormat)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{requireHistory: true})
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.history.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != report.FormatTable {
		return report.Write(out, format, run.Entries)
	}

	printHeader(out, "Saved Ranking Run")
	printKeyValue(out, "Run ID", run.RunID, 10)
	printKeyValue(out, "Account", run.AccountID, 10)
	printKeyValue(out, "Strategy", fmt.Sprintf("%s v%s", run.Strategy.ID, run.Strategy.Version), 10)
	printKeyValue(out, "Hash", run.Strategy.ConfigHash, 10)
	printKeyValue(out, "Started", run.StartedAt.Local().Format("2006-01-02 15:04:05"), 10)
	printSeparator(out)
	fmt.Fprintln(out)

	return report.WriteTable(out, run.Entries)
}
