package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/bookcatalog/pkg/app"
	"github.com/ghuser/bookcatalog/pkg/cache"
	"github.com/ghuser/bookcatalog/pkg/config"
	"github.com/ghuser/bookcatalog/pkg/events"
	"github.com/ghuser/bookcatalog/pkg/logger"
	"github.com/ghuser/bookcatalog/pkg/telemetry"
	catalogEvents "github.com/ghuser/bookcatalog/services/catalog/domain/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	slog.SetDefault(log.ToSlog())

	if !cfg.UsesPostgres() {
		log.Error("worker requires the postgres storage driver", "storage", cfg.StorageDriver)
		os.Exit(1)
	}

	ctx := context.Background()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	eventBus, err := events.New(cfg, log, events.WithConsumerGroup(cfg.ServiceName+"-cache-invalidation"))
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	appConfig := &app.Application{
		Config:   cfg,
		Logger:   log,
		EventBus: eventBus,
	}

	redisClient, err := cache.Connect(ctx, cfg)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		log.Info("redis not configured, catalog events are only logged")
	case err != nil:
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic
	default:
		defer redisClient.Close() //nolint:errcheck
		appConfig.Redis = redisClient
		log.Info("redis connected")
	}

	subCtx, cancelSubs := context.WithCancel(ctx)
	if err := registerSubscribers(subCtx, appConfig); err != nil {
		log.Error("failed to register subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancelSubs()

	// EventBus.Close() (via defer) waits up to 30s for in-flight handlers.
	log.Info("worker stopped")
}

// registerSubscribers wires a cache-invalidating handler to every catalog topic.
func registerSubscribers(ctx context.Context, a *app.Application) error {
	var books *cache.BookListCache
	if a.Redis != nil {
		books = cache.NewBookListCache(a.Redis, a.Config.BooksCacheTTL)
	}

	for _, topic := range catalogEvents.Topics {
		errCh, err := a.EventBus.Subscribe(ctx, topic, handleCatalogEvent(a.Logger, books, topic))
		if err != nil {
			return err
		}

		// Drain subscriber errors in background so the channel never blocks.
		go func() {
			for err := range errCh {
				a.Logger.ErrorContext(ctx, "subscriber error", "topic", topic, "error", err)
			}
		}()
	}

	a.Logger.Info("event subscribers registered", "topics", catalogEvents.Topics)
	return nil
}

// catalogEnvelope holds the fields shared by author and book events.
type catalogEnvelope struct {
	EventID  string `json:"event_id"`
	AuthorID string `json:"author_id,omitempty"`
	BookID   string `json:"book_id,omitempty"`
}

// handleCatalogEvent retires the books-by-author cache for every catalog change.
// It backs up the invalidation the API performs after each commit, so it must
// stay idempotent.
func handleCatalogEvent(log logger.Logger, books *cache.BookListCache, topic string) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		if v := msg.Metadata.Get(events.MetaSchemaVersion); v != "" && v != strconv.Itoa(events.SchemaVersion) {
			log.WarnContext(ctx, "skipping catalog event with unknown schema version",
				"topic", topic, "message_uuid", msg.UUID, "schema_version", v)
			return nil
		}

		var evt catalogEnvelope
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			// Ack: retrying cannot fix the payload.
			log.ErrorContext(ctx, "undecodable catalog event", "topic", topic, "message_uuid", msg.UUID, "error", err)
			return nil
		}

		if books == nil {
			log.InfoContext(ctx, "catalog event received", "topic", topic, "event_id", evt.EventID)
			return nil
		}
		if err := books.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate books cache for %s: %w", topic, err)
		}
		log.InfoContext(ctx, "books cache invalidated",
			"topic", topic,
			"event_id", evt.EventID,
			"author_id", evt.AuthorID,
			"book_id", evt.BookID,
		)
		return nil
	}
}
