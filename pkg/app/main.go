package app

import (
	"github.com/ghuser/bookcatalog/pkg/cache"
	"github.com/ghuser/bookcatalog/pkg/config"
	"github.com/ghuser/bookcatalog/pkg/database"
	"github.com/ghuser/bookcatalog/pkg/events"
	"github.com/ghuser/bookcatalog/pkg/logger"
)

// Application holds shared infrastructure dependencies for all services.
// Pass it to each bounded context's RegisterRoutes during server initialization.
//
// Logging: app.Logger is backed by a trace-aware handler. Use slog's context methods
// and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "book registered", "book_id", id)
//	app.Logger.ErrorContext(ctx, "failed to save", "error", err)
//
// Db and EventBus are nil when Config.StorageDriver is "memory".
// Redis is nil when Config.RedisURL is empty.
type Application struct {
	Config   *config.Config
	Db       *database.Database
	Logger   logger.Logger
	EventBus *events.EventBus
	Redis    *cache.RedisClient
}
