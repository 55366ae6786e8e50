// Package events carries catalog change events over PostgreSQL using
// Watermill's SQL transport.
//
// Publishing: with WithOutbox the bus writes every message to an internal
// outbox topic, and a forwarder started by StartForwarder relays it to the
// real topic. PublishJSON joins the caller's database.WithTx transaction when
// one is in ctx, so an event exists only if the catalog write committed.
//
// Subscribing: instances sharing a consumer group split the messages of a
// topic between them. Handlers must be idempotent since a failed handler is
// retried with exponential backoff and the message is nacked once retries run
// out.
package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql

	"github.com/ghuser/bookcatalog/pkg/config"
	"github.com/ghuser/bookcatalog/pkg/logger"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
	drainTimeout      = 30 * time.Second
	outboxTopic       = "catalog_outbox"
	errBuffer         = 100
)

// Option configures an EventBus.
type Option func(*options)

type options struct {
	outbox        bool
	consumerGroup string
	maxRetries    int
	retryDelay    time.Duration
}

// WithOutbox routes published messages through the outbox topic. Call
// StartForwarder to relay them.
func WithOutbox() Option {
	return func(o *options) { o.outbox = true }
}

// WithConsumerGroup overrides the default "<service>-consumer" group.
func WithConsumerGroup(name string) Option {
	return func(o *options) { o.consumerGroup = name }
}

// WithRetry sets how many times a handler runs before its message is nacked
// and the delay before the first retry.
func WithRetry(maxAttempts int, firstDelay time.Duration) Option {
	return func(o *options) {
		o.maxRetries, o.retryDelay = maxAttempts, firstDelay
	}
}

// EventBus publishes and consumes catalog events stored in PostgreSQL.
type EventBus struct {
	opts options
	db   *sql.DB
	wlog *watermillLogger
	log  logger.Logger

	publisher message.Publisher

	mu         sync.Mutex
	subscriber *watermillsql.Subscriber
	fwd        *forwarder.Forwarder

	wg sync.WaitGroup
}

// New connects to cfg.DatabaseURL and prepares the publisher. Watermill
// creates its tables on first use. The subscriber is opened lazily by the
// first Subscribe call.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*EventBus, error) {
	o := options{
		consumerGroup: cfg.ServiceName + "-consumer",
		maxRetries:    defaultMaxRetries,
		retryDelay:    defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxRetries < 1 {
		o.maxRetries = 1
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("events: open db: %w", err)
	}

	bus := &EventBus{opts: o, db: db, log: log, wlog: newWatermillLogger(log)}
	pub, err := watermillsql.NewPublisher(db, bus.publisherConfig(true), bus.wlog)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("events: new publisher: %w", err)
	}
	bus.publisher = bus.routed(pub)
	return bus, nil
}

func (b *EventBus) publisherConfig(initSchema bool) watermillsql.PublisherConfig {
	return watermillsql.PublisherConfig{
		SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
		AutoInitializeSchema: initSchema,
	}
}

// routed wraps pub so that, in outbox mode, messages land on the outbox topic.
func (b *EventBus) routed(pub message.Publisher) message.Publisher {
	if b.opts.outbox {
		return forwarder.NewPublisher(pub, forwarder.PublisherConfig{ForwarderTopic: outboxTopic})
	}
	return pub
}

func (b *EventBus) newSubscriber(group string) (*watermillsql.Subscriber, error) {
	sub, err := watermillsql.NewSubscriber(b.db, watermillsql.SubscriberConfig{
		SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
		ConsumerGroup:    group,
	}, b.wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new subscriber (%s): %w", group, err)
	}
	return sub, nil
}

// Ping checks the event store connection.
func (b *EventBus) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close stops the subscriber and forwarder, waits for in-flight handlers,
// then releases the publisher and connection.
func (b *EventBus) Close() error {
	b.mu.Lock()
	sub, fwd := b.subscriber, b.fwd
	b.mu.Unlock()

	var errs []error
	if sub != nil {
		if err := sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: close subscriber: %w", err))
		}
	}
	if fwd != nil {
		if err := fwd.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: close forwarder: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		b.log.Error("events: handlers still running after drain timeout", "timeout", drainTimeout)
	}

	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: close publisher: %w", err))
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: close db: %w", err))
		}
	}
	return errors.Join(errs...)
}
