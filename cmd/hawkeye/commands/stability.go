package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/hawkeye/internal/stability"
)

// stabilityCmd represents the stability command
var stabilityCmd = &cobra.Command{
	Use:   "stability",
	Short: "factor 이력 안정성 리포트",
	Long: `factor_history.json 으로 펀드별 factor 표준편차를 계산합니다.
표준편차 < 0.05 이면 stable, 관측치가 2개 미만이면 insufficient data.

Example:
  go run ./cmd/hawkeye stability
  go run ./cmd/hawkeye stability --output json`,
	RunE: runStability,
}

func init() {
	rootCmd.AddCommand(stabilityCmd)
}

func runStability(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.service.Stability(ctx)
	if err != nil {
		return fmt.Errorf("stability: %w", err)
	}

	if jsonOutput() {
		return PrintJSON(results)
	}

	PrintHeader("Factor Stability", "Threshold", fmt.Sprintf("%.2f", stability.StableThreshold))

	if len(results) == 0 {
		PrintInfo("No factor history yet")
		return nil
	}

	widths := []int{24, 6, 23, 8, 8, 8, 17}
	PrintTableHeader([]string{"Fund", "Obs", "Range", "Mean", "Latest", "StdDev", "Status"}, widths)
	for _, r := range results {
		span, mean, stddev := "-", "-", "-"
		if r.Observations > 0 {
			span = r.FirstDay + " ~ " + r.LastDay
			mean = fmt.Sprintf("%.4f", r.Mean)
		}
		if r.Sufficient {
			stddev = fmt.Sprintf("%.4f", r.StdDev)
		}
		PrintTableRow([]string{
			r.Fund,
			fmt.Sprintf("%d", r.Observations),
			span,
			mean,
			fmt.Sprintf("%.4f", r.Latest),
			stddev,
			r.Label(),
		}, widths)
	}
	return nil
}
