package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/sarvcast-next/internal/app"
	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"

	"github.com/gin-gonic/gin"
)

func main() {
	mode := flag.String("mode", app.ModeAll, "run mode: all, api, worker")
	migrateOnly := flag.Bool("migrate-only", false, "apply schema migrations and exit")
	flag.Parse()

	if err := run(*mode, *migrateOnly); err != nil {
		logger.StdLogger().Fatalf("sarvcast: %v", err)
	}
}

func run(mode string, migrateOnly bool) error {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer func() { _ = logger.Z().Sync() }()

	if err := models.InitDB(cfg.Database.ToDBOptions()); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if migrateOnly {
		logger.Infow("migrations_applied", "driver", cfg.Database.Driver)
		return nil
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	return app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
}
