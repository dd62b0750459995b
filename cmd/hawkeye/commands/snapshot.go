package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "장 마감 mixed 값 스냅샷 기록",
	Long: `현재 시세로 펀드별 mixed 값을 계산해 오늘 날짜로 history.json 에 기록합니다.
같은 날 다시 실행하면 그 날의 값 전체를 교체합니다.

Example:
  go run ./cmd/hawkeye snapshot
  go run ./cmd/hawkeye snapshot --output json`,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.TakeEndOfDaySnapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	if jsonOutput() {
		return PrintJSON(result)
	}

	PrintHeader("End-of-day Snapshot", "Day", result.Day, "Funds", fmt.Sprintf("%d", len(result.Values)))

	names := make([]string, 0, len(result.Values))
	for name := range result.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	widths := []int{24, 10}
	PrintTableHeader([]string{"Fund", "Mixed"}, widths)
	for _, name := range names {
		PrintTableRow([]string{name, fmtPct(result.Values[name])}, widths)
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Snapshot %s saved", result.Day))
	return nil
}
