package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Genius-apple/open-alpha/internal/api"
	"github.com/Genius-apple/open-alpha/internal/api/handlers"
	"github.com/Genius-apple/open-alpha/internal/dataset"
	"github.com/Genius-apple/open-alpha/internal/factor"
	"github.com/Genius-apple/open-alpha/internal/metrics"
	"github.com/Genius-apple/open-alpha/internal/report"
	"github.com/Genius-apple/open-alpha/internal/scheduler"
	"github.com/Genius-apple/open-alpha/internal/scheduler/jobs"
	"github.com/Genius-apple/open-alpha/pkg/config"
	"github.com/Genius-apple/open-alpha/pkg/database"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET    /health              - Health check
  GET    /api/structure       - Available symbols and intervals
  GET    /api/data            - OHLCV candles
  POST   /api/evaluate        - Evaluate and backtest one factor
  POST   /api/combine         - Backtest a weighted factor composite
  POST   /api/reports         - Save an evaluation report
  GET    /api/reports         - List saved reports
  GET    /api/reports/{id}    - Load one report
  DELETE /api/reports/{id}    - Delete one report
  GET    /api/rankings        - Top factors across saved reports

Example:
  go run ./cmd/openalpha api
  go run ./cmd/openalpha api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Open Alpha API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port":     cfg.Port,
		"env":      cfg.Env,
		"data_dir": cfg.DataDir,
	}).Info("Initializing API server")

	// 3. Initialize metrics
	if cfg.MetricsEnabled {
		metrics.InitRegistry()
	}

	// 4. Create dataset service and warm the catalog
	loader := dataset.NewLoader(cfg.DataDir, log)
	svc := dataset.NewService(loader, cfg.CacheTTL, cfg.CachePurge, log)

	catalog, err := svc.RefreshCatalog()
	if err != nil {
		log.WithError(err).Warn("Catalog scan failed, starting with an empty catalog")
	} else {
		metrics.UpdateCatalogSymbols(float64(len(catalog)))
		log.WithField("symbols", len(catalog)).Info("Catalog loaded")
	}

	// 5. Create the report store
	var db *database.DB
	var store report.Store
	switch cfg.ReportsBackend {
	case "postgres":
		db, err = database.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		store, err = report.NewPostgresStore(context.Background(), db.Pool)
		if err != nil {
			return fmt.Errorf("prepare report store: %w", err)
		}
		log.Info("Connected to database")
	default:
		store, err = report.NewFileStore(cfg.ReportsDir)
		if err != nil {
			return fmt.Errorf("prepare report store: %w", err)
		}
	}

	// 6. Create handlers
	engine := factor.NewEngine()
	healthHandler := handlers.NewHealthHandler(db, log)
	dataHandler := handlers.NewDataHandler(svc, log)
	factorHandler := handlers.NewFactorHandler(svc, engine, log)
	reportHandler := handlers.NewReportHandler(store, report.NewRanker(store), log)

	// 7. Create router and server
	router := api.NewRouter(cfg, log, healthHandler, dataHandler, factorHandler, reportHandler)
	server := api.New(cfg, log, router)

	// 8. Schedule the catalog refresh
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewCatalogRefreshJob(svc, cfg.CatalogRefresh, log)); err != nil {
		return fmt.Errorf("schedule catalog refresh: %w", err)
	}
	sched.Start()

	// 9. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
