package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/hawkeye/internal/api"
	"github.com/wonny/hawkeye/internal/api/handlers"
	"github.com/wonny/hawkeye/internal/monitor"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버와 실시간 보드 WebSocket 을 시작합니다.

Endpoints:
  GET  /health          - Health check
  GET  /ws/board        - 실시간 보드 스트림 (WebSocket)
  GET  /api/estimates   - 현재 추정 수익률
  GET  /api/stability   - factor 안정성 리포트
  POST /api/snapshot    - 장 마감 스냅샷 실행
  POST /api/audit       - 야간 보정 실행

Example:
  go run ./cmd/hawkeye api
  go run ./cmd/hawkeye api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본 PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "스냅샷/보정 스케줄러 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Hawkeye API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Engine
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":    a.cfg.Port,
		"env":     a.cfg.Env,
		"backend": a.cfg.Store.Backend,
	}).Info("Initializing API server")

	// 2. Live board: monitor loop feeds the websocket hub
	hub := api.NewHub(a.log)
	loop := monitor.NewLoop(a.service, a.cfg.Monitor.Interval, a.cfg.Monitor.RetryInterval, a.log, hub)
	go func() {
		if err := loop.Run(ctx); err != nil {
			a.log.WithError(err).Error("Monitor loop stopped")
		}
	}()

	// 3. Optional scheduler
	if apiWithScheduler {
		sched, err := initScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start(ctx)
		defer sched.Stop()
		a.log.Info("Scheduler started")
	}

	// 4. Router + server
	engineHandler := handlers.NewEngineHandler(a.service, loop, a.log)
	router := api.NewRouter(engineHandler, hub, a.log)
	server := api.New(a.cfg, a.log, router, hub)
	if err := server.Listen(); err != nil {
		return err
	}

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /ws/board")
	fmt.Println("  GET  /api/estimates")
	fmt.Println("  GET  /api/stability")
	fmt.Println("  POST /api/snapshot")
	fmt.Println("  POST /api/audit")
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
