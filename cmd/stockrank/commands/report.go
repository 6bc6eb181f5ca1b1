package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/stockrank/internal/pipeline"
	"github.com/wonny/stockrank/internal/ranking"
	"github.com/wonny/stockrank/internal/report"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "포트폴리오 랭킹 리포트",
	Long: `Downloads (or reads from cache) the portfolio data, extracts the scoring
factors, ranks every ticker and prints the report, best score first.

Cached data younger than CACHE_MAX_AGE (default 24h) is reused unless
--no-cache is given.

Example:
  go run ./cmd/stockrank report
  go run ./cmd/stockrank report --no-cache --save
  go run ./cmd/stockrank report --format json
  go run ./cmd/stockrank report --format markdown --styled
  go run ./cmd/stockrank report --breakdown`,
	RunE: runReport,
}

var (
	reportNoCache   bool
	reportFormat    string
	reportSave      bool
	reportBreakdown bool
	reportStyled    bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportNoCache, "no-cache", false, "always download fresh data")
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "output format (table|json|csv|markdown)")
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "store the run in the history database")
	reportCmd.Flags().BoolVar(&reportBreakdown, "breakdown", false, "print the score of every factor ranker")
	reportCmd.Flags().BoolVar(&reportStyled, "styled", false, "render markdown output for the terminal")
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{requireHistory: reportSave})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireAccount(); err != nil {
		return err
	}

	result, err := a.orchestrator.Run(ctx, pipeline.RunConfig{
		AccountID: a.cfg.IBKR.AccountID,
		UseCache:  !reportNoCache,
		Save:      reportSave,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == report.FormatMarkdown && reportStyled {
		return report.WriteStyled(out, "Portfolio Ranking", result.Entries, report.DefaultWordWrap)
	}
	if format != report.FormatTable {
		return report.Write(out, format, result.Entries)
	}

	printHeader(out, "Portfolio Ranking")
	printKeyValue(out, "Run ID", result.RunID, 10)
	printKeyValue(out, "Account", result.AccountID, 10)
	printKeyValue(out, "Strategy", fmt.Sprintf("%s v%s", result.Strategy.ID, result.Strategy.Version), 10)
	printKeyValue(out, "Data as of", result.DataTimestamp.Local().Format("2006-01-02 15:04:05"), 10)
	printSeparator(out)
	fmt.Fprintln(out)

	if err := report.WriteTable(out, result.Entries); err != nil {
		return err
	}

	if reportBreakdown {
		fmt.Fprintln(out)
		writeBreakdown(out, result.Breakdown)
	}

	fmt.Fprintln(out)
	if reportSave {
		printSuccess(out, fmt.Sprintf("Run %s saved", result.RunID))
	}
	return nil
}

// writeBreakdown prints one block per factor ranker, best ticker first
func writeBreakdown(w io.Writer, breakdown []ranking.RankerScores) {
	for _, rs := range breakdown {
		fmt.Fprintf(w, "%s\n", rs.Name)
		sorted := rs.Scores.Sorted()
		if len(sorted) == 0 {
			fmt.Fprintln(w, "   (no data)")
			continue
		}
		items := make([]string, 0, len(sorted))
		for _, st := range sorted {
			items = append(items, fmt.Sprintf("%-8s %.4f", st.Ticker, float64(st.Score)))
		}
		printList(w, items)
	}
}
