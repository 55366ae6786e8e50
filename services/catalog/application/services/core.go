package services

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/bookcatalog/pkg/logger"
	"github.com/ghuser/bookcatalog/pkg/telemetry"
	"github.com/ghuser/bookcatalog/services/catalog/domain"
)

// clientErrors are counted as rejections rather than failures.
var clientErrors = []error{
	domain.ErrInvalidArgument,
	domain.ErrInvariantViolation,
	domain.ErrMissingBooks,
	domain.ErrMissingAuthors,
	domain.ErrAuthorNotFound,
	domain.ErrBookNotFound,
}

// core holds the infrastructure shared by the author and book services.
type core struct {
	tx      TxRunner
	events  EventPublisher
	cache   BookListCache
	metrics *telemetry.CatalogMetrics
	clock   clockwork.Clock
	log     logger.Logger
}

// write runs fn in one unit of work under a span and records the outcome.
// The books-by-author cache is invalidated once the unit commits.
func (c *core) write(ctx context.Context, aggregate, op string, fn func(ctx context.Context) error) error {
	ctx, span := c.start(ctx, aggregate+"."+op)
	defer span.End()

	err := c.tx.WithTx(ctx, fn)
	c.metrics.RecordOperation(ctx, aggregate, op, err, clientErrors...)
	if err != nil {
		c.fail(span, err)
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *core) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, "catalog."+name)
}

func (c *core) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (c *core) publish(ctx context.Context, topic, eventID string, event any) error {
	if c.events == nil {
		return nil
	}
	trace.SpanFromContext(ctx).AddEvent("publish", trace.WithAttributes(attribute.String("topic", topic)))
	return c.events.PublishJSON(ctx, topic, eventID, event)
}

func (c *core) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		c.log.WarnContext(ctx, "catalog: cache invalidation failed", "error", err)
	}
}
