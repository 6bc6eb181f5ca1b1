package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockrank/internal/strategyconfig"
	"github.com/wonny/stockrank/pkg/config"
)

// strategyCmd represents the strategy command
var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "랭킹 전략 설정",
}

var strategyCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "전략 YAML 검증",
	Long: `전략 YAML을 읽어 검증하고 랭커 목록, 수동 입력 종목, 설정 해시를 출력합니다.
--strategy 또는 STRATEGY_PATH가 없으면 내장 기본 전략을 검사합니다.`,
	RunE: runStrategyCheck,
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyCheckCmd)
}

func runStrategyCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := cfg.StrategyPath
	if strategyPath != "" {
		path = strategyPath
	}

	strategy, err := strategyconfig.LoadOrDefault(path)
	if err != nil {
		return err
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := path
	if source == "" {
		source = "(built-in)"
	}

	printHeader(out, "Strategy")
	printKeyValue(out, "Source", source, 10)
	printKeyValue(out, "ID", strategy.Meta.StrategyID, 10)
	printKeyValue(out, "Version", strategy.Meta.Version, 10)
	printKeyValue(out, "Hash", hash, 10)
	printSeparator(out)

	rankers := make([]string, 0, len(strategy.Rankers))
	for _, b := range strategy.Rankers {
		rankers = append(rankers, b.String())
	}
	fmt.Fprintln(out, "Rankers:")
	printList(out, rankers)

	if tickers := strategy.OverrideTickers(); len(tickers) > 0 {
		fmt.Fprintln(out, "Overrides:")
		printList(out, tickers)
	}

	warnings := strategyconfig.Check(strategy)
	for _, w := range warnings {
		printWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	if len(warnings) == 0 {
		printSuccess(out, "Strategy is valid")
	}
	return nil
}
