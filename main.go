package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"exam_prep_backend/internal/app"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/pkg/logger"
)

// @title Exam Prep Backend API
// @version 1.0
// @description Lesson progression, mock exam variants and subscription provisioning.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	migrate := flag.Bool("migrate", true, "run schema migration on startup")
	migrateOnly := flag.Bool("migrate-only", false, "migrate and exit")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		panic(err)
	}

	if err := logger.InitLogger(logger.Options{
		Level:    cfg.Log.Level,
		Filename: cfg.Log.Filename,
		MaxSize:  cfg.Log.MaxSize,
		MaxAge:   cfg.Log.MaxAge,
		Compress: cfg.Log.Compress,
	}); err != nil {
		panic(err)
	}
	defer logger.Log.Sync()

	application, err := app.NewApp(cfg, *migrate || *migrateOnly)
	if err != nil {
		logger.Log.Fatal("startup failed", zap.Error(err))
	}
	if *migrateOnly {
		logger.Log.Info("migration finished, exiting")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Log.Fatal("server error", zap.Error(err))
	}
}
