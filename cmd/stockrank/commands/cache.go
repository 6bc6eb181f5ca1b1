package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "주식 데이터 캐시 관리",
	Long: `IBKR에서 다운로드한 주식 데이터 캐시를 조회하거나 삭제합니다.

Example:
  go run ./cmd/stockrank cache status
  go run ./cmd/stockrank cache clear`,
}

var (
	cacheStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "캐시 상태 조회",
		RunE:  runCacheStatus,
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "캐시 삭제",
		RunE:  runCacheClear,
	}
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireAccount(); err != nil {
		return err
	}

	status, err := a.cacher.Status(ctx, a.cfg.IBKR.AccountID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printHeader(out, "Stock Data Cache")
	printKeyValue(out, "Backend", status.Backend, 12)
	printKeyValue(out, "Account", a.cfg.IBKR.AccountID, 12)
	printKeyValue(out, "Max age", a.cfg.Cache.MaxAge.String(), 12)
	if !status.Present {
		printSeparator(out)
		printWarning(out, "No cached data")
		return nil
	}

	printKeyValue(out, "Downloaded", status.Timestamp.Local().Format("2006-01-02 15:04:05"), 12)
	printKeyValue(out, "Age", status.Age.Round(time.Second).String(), 12)
	printKeyValue(out, "Fresh", strconv.FormatBool(status.Fresh), 12)
	printKeyValue(out, "Positions", strconv.Itoa(status.Positions), 12)
	printSeparator(out)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireAccount(); err != nil {
		return err
	}

	if err := a.cacher.Clear(ctx, a.cfg.IBKR.AccountID); err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Cache cleared for %s", a.cfg.IBKR.AccountID))
	return nil
}
