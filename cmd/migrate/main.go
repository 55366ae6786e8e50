package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	catalogmigrations "github.com/ghuser/bookcatalog/migrations/catalog"
	"github.com/ghuser/bookcatalog/pkg/config"
	"github.com/ghuser/bookcatalog/pkg/logger"
	"github.com/ghuser/bookcatalog/pkg/migrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg)
	slog.SetDefault(log.ToSlog())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := migrator.RunMigrationsURL(ctx, cfg.DatabaseURL, catalogmigrations.FS, log); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: deferred cancel is best-effort
	}
	log.Info("migrations complete")
}
