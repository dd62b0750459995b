package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/hawkeye/internal/calibration"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "야간 factor 보정",
	Long: `가장 최근 스냅샷 날짜의 공식 수익률과 mixed 값을 비교해 펀드별 factor 를 갱신합니다.

- new = old × 0.85 + (official / mixed) × 0.15 (소수 4자리)
- 같은 날짜로 이미 보정된 펀드는 건너뜀
- 공식 값이 아직 발표되지 않은 펀드는 건너뜀

Example:
  go run ./cmd/hawkeye audit
  go run ./cmd/hawkeye audit --output json`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.service.RunNightlyAudit(ctx)
	if errors.Is(err, calibration.ErrNoSnapshot) {
		PrintWarning("No snapshot recorded yet, run `hawkeye snapshot` first")
		return nil
	}
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	if jsonOutput() {
		return PrintJSON(report)
	}

	PrintHeader("Nightly Audit", "Day", report.Day, "Funds", fmt.Sprintf("%d", len(report.Outcomes)))

	widths := []int{24, 36, 22}
	PrintTableHeader([]string{"Fund", "Outcome", "Factor"}, widths)
	for _, fo := range report.Outcomes {
		factor := "-"
		if fo.Outcome == calibration.OutcomeUpdated {
			factor = fmt.Sprintf("%.4f -> %.4f", fo.Old, fo.New)
		}
		PrintTableRow([]string{fo.Fund, string(fo.Outcome), factor}, widths)
	}

	fmt.Println()
	if n := report.Count(calibration.OutcomeUpdated); n > 0 {
		PrintSuccess(fmt.Sprintf("%d fund(s) calibrated", n))
	} else {
		PrintInfo("Nothing to update")
	}
	fmt.Println(report.Summary())
	return nil
}
