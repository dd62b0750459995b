package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	outputFormat string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hawkeye",
	Short: "hawkeye - 펀드 장중 추정 수익률 및 야간 팩터 보정",
	Long: `hawkeye CLI

보유종목 + 섀도우 종목 시세로 펀드 장중 수익률을 추정하고,
공식 净值 발표 후 펀드별 factor 를 보정합니다.

Usage:
  go run ./cmd/hawkeye [command]

Examples:
  go run ./cmd/hawkeye monitor
  go run ./cmd/hawkeye snapshot
  go run ./cmd/hawkeye audit
  go run ./cmd/hawkeye stability
  go run ./cmd/hawkeye scheduler start
  go run ./cmd/hawkeye api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text|json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
