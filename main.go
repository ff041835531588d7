package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-dss/api"
	"market-dss/config"
	"market-dss/services"
	"market-dss/storage"
	"market-dss/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	logger.Info("=== Market decision-support service starting ===")
	logger.Info("Config: db: %s | storage: %s | topics: %d | ingest workers: %d",
		cfg.DBDriver, cfg.StorageDir, cfg.TopicCount, cfg.IngestConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.SQLitePath
	if cfg.DBDriver == "postgres" {
		dsn = cfg.DSN()
	}
	tables, err := storage.OpenSQLStore(ctx, cfg.DBDriver, dsn, logger)
	if err != nil {
		logger.Error("Failed to open the %s table store: %v", cfg.DBDriver, err)
		if cfg.DBDriver == "postgres" {
			logger.Error("Make sure Docker is running: docker compose up -d")
		}
		os.Exit(1)
	}
	defer tables.Close()

	latest, err := storage.NewCSVStore(cfg.LatestDataPath())
	if err != nil {
		logger.Error("Failed to prepare the latest dataset store: %v", err)
		os.Exit(1)
	}
	history, err := storage.NewXLSXArchive(cfg.HistoryPath())
	if err != nil {
		logger.Error("Failed to prepare the history workbook: %v", err)
		os.Exit(1)
	}

	repo := storage.NewRepository(tables, latest, history, logger)
	pipeline := services.NewPipeline(repo, repo, services.PipelineOptions{
		MaxRecords:        cfg.MaxRecords,
		TopicCount:        cfg.TopicCount,
		IngestConcurrency: cfg.IngestConcurrency,
	}, logger)

	// Files named on the command line are ingested and the process exits.
	if paths := os.Args[1:]; len(paths) > 0 {
		code := ingest(ctx, pipeline, paths, logger)
		_ = tables.Close()
		os.Exit(code)
	}

	users, err := api.ParseUsers(cfg.Users)
	if err != nil {
		logger.Error("Invalid USERS setting: %v", err)
		os.Exit(1)
	}
	tokens := api.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	server := api.NewServer(pipeline, tokens, users, api.Options{
		UploadDir:   cfg.UploadDir,
		HistoryPath: repo.HistoryPath(),
		CORSOrigins: cfg.CORSOrigins,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Shutdown: %v", err)
		}
	}()

	logger.Info("Listening on %s (%d users configured)", cfg.HTTPAddr, len(users))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}
	logger.Info("=== Stopped ===")
}

// ingest stores each file and returns the process exit code.
func ingest(ctx context.Context, pipeline *services.Pipeline, paths []string, logger *utils.Logger) int {
	code := 0
	for _, res := range pipeline.IngestAll(ctx, paths) {
		if res.Err != nil {
			code = 1
			continue
		}
		fmt.Printf("  %-40s %-8s %d rows\n", res.File, res.Kind, res.Rows)
	}
	if code != 0 {
		logger.Warn("Some files could not be ingested")
	}
	return code
}
