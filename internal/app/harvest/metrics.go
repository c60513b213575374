package harvest

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
)

// HarvestMetrics records batch outcomes for a harvester.
type HarvestMetrics interface {
	ObserveBatch(ctx context.Context, kind domain.EntityKind, p domain.Progress, duration time.Duration)
	IncLoopDetected(ctx context.Context, kind domain.EntityKind)
}

const namespace = "harvester"

// Metrics implements HarvestMetrics with OpenTelemetry instruments.
type Metrics struct {
	recordsFound      metric.Int64Counter
	recordsPropagated metric.Int64Counter
	recordsFailed     metric.Int64Counter
	batches           metric.Int64Counter
	batchesAborted    metric.Int64Counter
	loopsDetected     metric.Int64Counter
	batchDuration     metric.Float64Histogram
}

// NewMetrics creates the harvest instruments on the given meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(Metrics)
	var err error

	if m.recordsFound, err = meter.Int64Counter(
		"harvest_records_found_total",
		metric.WithDescription("Deletion records fetched from the source"),
	); err != nil {
		return nil, fmt.Errorf("failed to create records found counter: %w", err)
	}

	if m.recordsPropagated, err = meter.Int64Counter(
		"harvest_records_propagated_total",
		metric.WithDescription("Deletion records applied to the destination"),
	); err != nil {
		return nil, fmt.Errorf("failed to create records propagated counter: %w", err)
	}

	if m.recordsFailed, err = meter.Int64Counter(
		"harvest_records_failed_total",
		metric.WithDescription("Deletion records that failed and were rolled back"),
	); err != nil {
		return nil, fmt.Errorf("failed to create records failed counter: %w", err)
	}

	if m.batches, err = meter.Int64Counter(
		"harvest_batches_total",
		metric.WithDescription("Batches executed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create batches counter: %w", err)
	}

	if m.batchesAborted, err = meter.Int64Counter(
		"harvest_batches_aborted_total",
		metric.WithDescription("Batches that ended in abort"),
	); err != nil {
		return nil, fmt.Errorf("failed to create batches aborted counter: %w", err)
	}

	if m.loopsDetected, err = meter.Int64Counter(
		"harvest_loops_detected_total",
		metric.WithDescription("Runs stopped because pagination could not progress"),
	); err != nil {
		return nil, fmt.Errorf("failed to create loops detected counter: %w", err)
	}

	if m.batchDuration, err = meter.Float64Histogram(
		"harvest_batch_duration_seconds",
		metric.WithDescription("Time spent executing one batch"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create batch duration histogram: %w", err)
	}

	return m, nil
}

// ObserveBatch records the counters and duration of one batch.
func (m *Metrics) ObserveBatch(ctx context.Context, kind domain.EntityKind, p domain.Progress, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("kind", kind.String()))
	m.batches.Add(ctx, 1, attrs)
	m.recordsFound.Add(ctx, int64(p.Found), attrs)
	m.recordsPropagated.Add(ctx, int64(p.Ingested), attrs)
	m.recordsFailed.Add(ctx, int64(p.Failed), attrs)
	if p.Abort {
		m.batchesAborted.Add(ctx, 1, attrs)
	}
	m.batchDuration.Record(ctx, duration.Seconds(), attrs)
}

// IncLoopDetected counts a loop-detection trip.
func (m *Metrics) IncLoopDetected(ctx context.Context, kind domain.EntityKind) {
	m.loopsDetected.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}
