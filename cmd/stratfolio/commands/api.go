package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stratfolio/internal/api"
	"github.com/wonny/stratfolio/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health           - Health check
  GET  /api/test         - 연결 확인
  POST /api/process      - 거래 로그 업로드 → PortfolioData
  POST /api/filter       - 기간 필터 후 재계산
  POST /api/montecarlo   - Monte Carlo 시뮬레이션
  POST /api/stress       - 스트레스 테스트
  GET  /api/margins      - 증거금 요율 (?type=intraday|overnight)
  GET  /ws/montecarlo    - Monte Carlo 진행률 스트림 (websocket)

Example:
  go run ./cmd/stratfolio api
  go run ./cmd/stratfolio api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stratfolio API Server ===")

	// 1. Wire engine (config, logger, margin provider)
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port":    a.cfg.Port,
		"env":     a.cfg.Env,
		"offline": offline,
	}).Info("Initializing API server")

	// 2. Create handler / router / server
	h := handlers.New(a.orch, a.cfg.Engine.MaxUploadSizeBytes, log.WithComponent("api"))
	router := api.NewRouter(h, a.cfg, log)
	server := api.New(a.cfg, log, router)

	// 3. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
