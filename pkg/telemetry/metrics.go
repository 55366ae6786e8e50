package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Catalog operation outcomes recorded on CatalogMetrics counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// CatalogMetrics holds the counters recorded by the catalog application services.
type CatalogMetrics struct {
	operations  metric.Int64Counter
	cacheLookup metric.Int64Counter
}

// NewCatalogMetrics registers the catalog instruments on meter.
func NewCatalogMetrics(meter metric.Meter) (*CatalogMetrics, error) {
	ops, err := meter.Int64Counter("catalog.operations",
		metric.WithDescription("Catalog registrations and updates by aggregate, operation and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog.operations counter: %w", err)
	}
	lookups, err := meter.Int64Counter("catalog.cache.lookups",
		metric.WithDescription("Books-by-author cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog.cache.lookups counter: %w", err)
	}
	return &CatalogMetrics{operations: ops, cacheLookup: lookups}, nil
}

// RecordOperation counts one catalog operation. An err matching one of
// rejected is a client rejection; any other non-nil err is a failure.
func (m *CatalogMetrics) RecordOperation(ctx context.Context, aggregate, op string, err error, rejected ...error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
		for _, target := range rejected {
			if errors.Is(err, target) {
				outcome = OutcomeRejected
				break
			}
		}
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("aggregate", aggregate),
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

// RecordCacheLookup counts a cache hit or miss.
func (m *CatalogMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookup.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
