package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/hawkeye/internal/monitor"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "장중 추정 수익률 실시간 보드",
	Long: `보유종목과 섀도우 종목 시세로 펀드별 추정 수익률을 주기적으로 출력합니다.

- 정상 갱신 후 MONITOR_INTERVAL (기본 30s) 대기
- 실패 시 MONITOR_RETRY_INTERVAL (기본 2s) 후 재시도
- --once 로 한 번만 출력

Example:
  go run ./cmd/hawkeye monitor
  go run ./cmd/hawkeye monitor --once
  go run ./cmd/hawkeye monitor --once --output json`,
	RunE: runMonitor,
}

var monitorOnce bool

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "한 번만 출력하고 종료")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if monitorOnce {
		board, err := a.service.Board(ctx)
		if jsonOutput() && board != nil {
			if perr := PrintJSON(board); perr != nil {
				return perr
			}
		} else if board != nil {
			if rerr := monitor.NewTextRenderer(os.Stdout).Render(ctx, board); rerr != nil {
				return rerr
			}
		}
		if err != nil {
			return fmt.Errorf("board: %w", err)
		}
		return nil
	}

	loop := monitor.NewLoop(a.service, a.cfg.Monitor.Interval, a.cfg.Monitor.RetryInterval, a.log,
		monitor.NewTextRenderer(os.Stdout))

	a.log.WithFields(map[string]interface{}{
		"interval": a.cfg.Monitor.Interval,
		"retry":    a.cfg.Monitor.RetryInterval,
	}).Info("Monitor started")

	if err := loop.Run(ctx); err != nil {
		return err
	}

	fmt.Println("\nMonitor stopped")
	return nil
}
