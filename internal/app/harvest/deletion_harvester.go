// Package harvest implements the incremental deletion harvester: the batch
// state machine that reads deletion records from a source catalogue and
// propagates them to a destination, one committed record at a time.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/pkg/common"
	"github.com/ahrav/caom2-harvester/pkg/common/logger"
	"github.com/ahrav/caom2-harvester/pkg/common/timeutil"
)

const (
	// nudgeStep moves the cursor past the terminal record of an exhausted scan.
	nudgeStep = time.Millisecond
	// staleNudgeStep replaces nudgeStep when the nudged cursor would still
	// trail wall-clock time by more than staleNudgeAfter. The reason for the
	// larger step is unknown; it is kept for compatibility with cursors
	// written by earlier harvesters.
	staleNudgeStep  = 100 * time.Millisecond
	staleNudgeAfter = 10 * time.Minute
)

// Config selects what a DeletionHarvester harvests and how.
type Config struct {
	// Source names the source/destination pairing the cursor belongs to.
	Source string
	Kind   domain.EntityKind

	// BatchSize caps the records fetched per batch. Nil fetches everything
	// after the cursor in a single batch.
	BatchSize *int

	// DryRun logs what would be propagated without touching the destination
	// or the cursor. A dry run always stops after one batch.
	DryRun bool

	// InitState seeds an empty cursor with the harvester's start time.
	InitState bool

	// Full ignores the stored cursor on the first batch of the run.
	Full bool

	// Threads is accepted for configuration compatibility. Batches are
	// processed sequentially regardless of its value.
	Threads int

	// RateLimit caps destination deletes per second. Zero disables limiting.
	RateLimit float64
}

// Report aggregates the progress of every batch executed by Run.
type Report struct {
	Batches  int
	Found    int
	Ingested int
	Failed   int
	Aborted  bool
}

func (r *Report) add(p domain.Progress) {
	r.Batches++
	r.Found += p.Found
	r.Ingested += p.Ingested
	r.Failed += p.Failed
}

// DeletionHarvester propagates source deletions of one entity kind to the
// destination. A harvester owns the cursor for its (source, cname) pair for
// the duration of Run; two harvesters must never share a pair.
type DeletionHarvester struct {
	cfg      Config
	backends domain.Backends

	// initDate seeds empty cursors when InitState is set. It is captured once
	// so every batch of a run seeds the same value.
	initDate time.Time

	timeProvider timeutil.Provider
	logger       *logger.Logger
	metrics      HarvestMetrics
	tracer       trace.Tracer
}

// Option configures a DeletionHarvester.
type Option func(*DeletionHarvester)

// WithTimeProvider overrides the clock used for the init seed and the cursor
// nudge.
func WithTimeProvider(tp timeutil.Provider) Option {
	return func(h *DeletionHarvester) { h.timeProvider = tp }
}

// NewDeletionHarvester creates a harvester for cfg.Kind.
func NewDeletionHarvester(
	cfg Config,
	backends domain.Backends,
	logger *logger.Logger,
	metrics HarvestMetrics,
	tracer trace.Tracer,
	opts ...Option,
) *DeletionHarvester {
	h := &DeletionHarvester{
		cfg:          cfg,
		backends:     backends,
		timeProvider: timeutil.Default(),
		logger: logger.With(
			"component", "deletion_harvester",
			"source", cfg.Source,
			"kind", cfg.Kind.String(),
		),
		metrics: metrics,
		tracer:  tracer,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.initDate = h.timeProvider.Now()

	return h
}

// harvestRun is the per-run state shared by the batches of one Run call.
type harvestRun struct {
	handles    *domain.Handles
	propagator *DeletePropagator
	full       bool
}

// Run executes batches until the source is exhausted, a batch aborts, or a
// fatal condition is detected. Cancellation is honoured between batches only;
// an in-flight record is always committed or rolled back.
func (h *DeletionHarvester) Run(ctx context.Context) (Report, error) {
	ctx, span := h.tracer.Start(ctx, "deletion_harvester.run",
		trace.WithAttributes(
			attribute.String("source", h.cfg.Source),
			attribute.String("kind", h.cfg.Kind.String()),
			attribute.Bool("dry_run", h.cfg.DryRun),
			attribute.Bool("full", h.cfg.Full),
		))
	defer span.End()

	var report Report

	run, err := h.init(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "initialization failed")
		return report, err
	}
	defer h.close(ctx, run.handles)

	for {
		if err := ctx.Err(); err != nil {
			span.AddEvent("context_cancelled")
			return report, err
		}

		progress, err := h.doBatch(ctx, run)
		report.add(progress)
		run.full = false

		if err != nil {
			if domain.IsLoopDetected(err) {
				h.metrics.IncLoopDetected(ctx, h.cfg.Kind)
			}
			report.Aborted = true
			h.logger.Error(ctx, "Batch failed", "error", err, "progress", progress.String())
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch failed")
			return report, err
		}

		if progress.FailureRateExceeded() {
			progress.Abort = true
		}
		h.logger.Info(ctx, "Batch finished", "progress", progress.String())

		if progress.Abort {
			report.Aborted = true
			h.logger.Error(ctx, "Batch aborted", "progress", progress.String())
			span.SetStatus(codes.Error, "batch aborted")
			return report, nil
		}
		if progress.Done || h.cfg.DryRun {
			break
		}
	}

	h.logger.Info(ctx, "DONE",
		"batches", report.Batches,
		"found", report.Found,
		"ingested", report.Ingested,
		"failed", report.Failed,
	)
	span.SetStatus(codes.Ok, "harvest completed")
	return report, nil
}

func (h *DeletionHarvester) init(ctx context.Context) (*harvestRun, error) {
	if h.cfg.BatchSize != nil && *h.cfg.BatchSize < 1 {
		return nil, &domain.InitializationError{
			Kind: h.cfg.Kind,
			Err:  fmt.Errorf("batch size must be positive, got %d", *h.cfg.BatchSize),
		}
	}

	handles, err := h.backends.Acquire(ctx, h.cfg.Kind)
	if err != nil {
		return nil, &domain.InitializationError{Kind: h.cfg.Kind, Err: err}
	}
	if handles == nil || handles.Source == nil || handles.States == nil || handles.Txn == nil {
		h.close(ctx, handles)
		return nil, &domain.InitializationError{Kind: h.cfg.Kind, Err: errors.New("incomplete backend handles")}
	}

	var opts []PropagatorOption
	if h.cfg.RateLimit > 0 {
		opts = append(opts, WithRateLimiter(common.NewRateLimiter(h.cfg.RateLimit, 1)))
	}
	propagator, err := NewDeletePropagator(h.cfg.Kind, handles.ByID, handles.ByTypeAndID, opts...)
	if err != nil {
		h.close(ctx, handles)
		return nil, &domain.InitializationError{Kind: h.cfg.Kind, Err: err}
	}
	h.logger.Debug(ctx, "Delete propagator bound", "operation", propagator.String())

	return &harvestRun{handles: handles, propagator: propagator, full: h.cfg.Full}, nil
}

func (h *DeletionHarvester) close(ctx context.Context, handles *domain.Handles) {
	if handles == nil || handles.Close == nil {
		return
	}
	if err := handles.Close(); err != nil {
		h.logger.Error(ctx, "Failed to close backend handles", "error", err)
	}
}

// doBatch fetches and propagates one batch of deletion records.
func (h *DeletionHarvester) doBatch(ctx context.Context, run *harvestRun) (domain.Progress, error) {
	ctx, span := h.tracer.Start(ctx, "deletion_harvester.batch")
	defer span.End()

	start := h.timeProvider.Now()
	var progress domain.Progress
	defer func() { h.metrics.ObserveBatch(ctx, h.cfg.Kind, progress, h.timeProvider.Since(start)) }()

	expected := math.MaxInt
	if h.cfg.BatchSize != nil {
		expected = *h.cfg.BatchSize
	}
	h.logger.Info(ctx, "Starting batch", "batch_size", expected)

	state, err := h.loadState(ctx, run)
	if err != nil {
		span.RecordError(err)
		return progress, err
	}

	var lower *time.Time
	if !run.full {
		lower = state.CurLastModified()
	}

	// A resumed scan re-reads the previous batch's last record, so one extra
	// row is fetched to keep the window at batch size.
	limit := h.cfg.BatchSize
	resumed := limit != nil && lower != nil && state.CurID() != nil
	if resumed {
		limit = ptr(*limit + 1)
		expected = *limit
	}

	entities, err := run.handles.Source.List(ctx, h.cfg.Kind, lower, nil, limit)
	if err != nil {
		span.RecordError(err)
		return progress, fmt.Errorf("failed to list deleted %s: %w", h.cfg.Kind, err)
	}

	progress.Found = len(entities)
	span.SetAttributes(attribute.Int("found", progress.Found))

	if len(entities) == expected {
		window := entities
		if resumed && state.IsBoundary(window[0].ID()) {
			window = window[1:]
		}
		if err := h.detectLoop(window); err != nil {
			span.RecordError(err)
			return progress, err
		}
	}
	h.logger.Info(ctx, "Fetched deletion records", "found", progress.Found)

	consumed := false
	for i := range entities {
		de := entities[i]
		entities[i] = domain.DeletedEntity{}

		if state.PrecedesCursor(de.LastModified(), de.ID()) {
			h.logger.Debug(ctx, "Skipping record, already processed", "id", de.ID().String())
			continue
		}

		// The inclusive lower bound returns the previous batch's last record
		// first. Anywhere else it means the source order changed under us.
		if state.IsBoundary(de.ID()) {
			if !consumed {
				h.logger.Info(ctx, "Skipping record, was end of last batch", "id", de.ID().String())
				consumed = true
				continue
			}
			h.logger.Warn(ctx, "Reached previous batch boundary, stopping pass", "id", de.ID().String())
			break
		}
		consumed = true

		if err := h.propagate(ctx, run, state, de); err != nil {
			progress.RecordFailure()
			span.RecordError(err)
			h.logger.Error(ctx, "Failed to propagate deletion",
				"id", de.ID().String(),
				"last_modified", formatTime(ptr(de.LastModified())),
				"cursor", formatCursor(state),
				"error", err,
			)
			// A failed cursor write is not specific to this record.
			if domain.IsPersistence(err) {
				return progress, err
			}
			break
		}
		progress.RecordIngested()
	}

	if progress.Found < expected {
		progress.Done = true
		if err := h.nudge(ctx, run, state, progress); err != nil {
			span.RecordError(err)
			return progress, err
		}
	}

	// A full batch holding only already-processed records would be refetched
	// unchanged by the next batch.
	if !progress.Done && !progress.Abort && progress.Found > 0 && progress.Ingested == 0 {
		h.logger.Warn(ctx, "No progress past previous batch boundary", "cursor", formatCursor(state))
		progress.Done = true
	}

	span.SetAttributes(
		attribute.Int("ingested", progress.Ingested),
		attribute.Int("failed", progress.Failed),
		attribute.Bool("done", progress.Done),
		attribute.Bool("abort", progress.Abort),
	)
	return progress, nil
}

// loadState reads the cursor, seeding it with initDate when requested.
func (h *DeletionHarvester) loadState(ctx context.Context, run *harvestRun) (*domain.HarvestState, error) {
	cname := h.cfg.Kind.CName()
	state, err := run.handles.States.Get(ctx, h.cfg.Source, cname)
	if err != nil {
		return nil, asPersistenceError(h.cfg.Source, cname, err)
	}
	h.logger.Info(ctx, "Loaded harvest state", "last_harvest", formatTime(state.CurLastModified()))

	if !h.cfg.InitState || state.HasCursor() {
		return state, nil
	}

	// A dry run keeps the seed in memory only.
	state.SetCurLastModified(h.initDate)
	if h.cfg.DryRun {
		return state, nil
	}

	if err := run.handles.States.Put(ctx, state); err != nil {
		return nil, asPersistenceError(h.cfg.Source, cname, err)
	}
	if state, err = run.handles.States.Get(ctx, h.cfg.Source, cname); err != nil {
		return nil, asPersistenceError(h.cfg.Source, cname, err)
	}
	h.logger.Info(ctx, "Harvest state initialised", "cur_last_modified", formatTime(state.CurLastModified()))

	return state, nil
}

func (h *DeletionHarvester) detectLoop(entities []domain.DeletedEntity) error {
	if len(entities) < 2 {
		return nil
	}
	first, last := entities[0].LastModified(), entities[len(entities)-1].LastModified()
	if !first.Equal(last) {
		return nil
	}
	return &domain.LoopDetectedError{Kind: h.cfg.Kind, LastModified: first, BatchSize: len(entities)}
}

// propagate applies one deletion record in its own transaction and advances
// the cursor onto it. On failure the transaction is rolled back and the
// in-memory cursor is restored.
func (h *DeletionHarvester) propagate(
	ctx context.Context,
	run *harvestRun,
	state *domain.HarvestState,
	de domain.DeletedEntity,
) error {
	h.logger.Info(ctx, "Propagating deletion",
		"id", de.ID().String(),
		"last_modified", formatTime(ptr(de.LastModified())),
		"dry_run", h.cfg.DryRun,
	)
	if h.cfg.DryRun {
		return nil
	}

	txn := run.handles.Txn
	snapshot := state.Snapshot()

	err := func() error {
		if err := txn.StartTransaction(ctx); err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		state.Advance(de.LastModified(), de.ID())

		if err := run.propagator.Delete(ctx, de.ID()); err != nil {
			return err
		}
		if err := run.handles.States.Put(ctx, state); err != nil {
			return asPersistenceError(state.Source(), state.CName(), err)
		}

		h.logger.Debug(ctx, "Committing transaction")
		if err := txn.CommitTransaction(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	}()
	if err == nil {
		return nil
	}

	state.Restore(snapshot)
	if txn.IsOpen() {
		h.logger.Warn(ctx, "Rolling back transaction", "id", de.ID().String())
		if rbErr := txn.RollbackTransaction(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
	}
	return err
}

// nudge moves the stored cursor past the terminal record of an exhausted scan
// so the next at-or-after query does not select it again.
func (h *DeletionHarvester) nudge(
	ctx context.Context,
	run *harvestRun,
	state *domain.HarvestState,
	progress domain.Progress,
) error {
	if h.cfg.DryRun || progress.Abort || progress.Found == 0 {
		return nil
	}
	cur := state.CurLastModified()
	if cur == nil {
		return nil
	}

	next := NudgedCursor(*cur, h.timeProvider.Now())
	state.SetCurLastModified(next)
	h.logger.Info(ctx, "Reached last record, advancing cursor", "cur_last_modified", formatTime(&next))

	if err := run.handles.States.Put(ctx, state); err != nil {
		return asPersistenceError(state.Source(), state.CName(), err)
	}
	return nil
}

// NudgedCursor returns the cursor that follows cur once a scan is exhausted:
// cur+1ms, or cur+100ms when cur+1ms trails now by more than ten minutes.
func NudgedCursor(cur, now time.Time) time.Time {
	n := cur.Add(nudgeStep)
	if now.Sub(n) > staleNudgeAfter {
		n = cur.Add(staleNudgeStep)
	}
	return n
}

func asPersistenceError(source, cname string, err error) error {
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &domain.PersistenceError{Source: source, CName: cname, Err: err}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "null"
	}
	return t.UTC().Format("2006-01-02T15:04:05.000")
}

func ptr[T any](v T) *T { return &v }

func formatCursor(s *domain.HarvestState) string {
	id := "null"
	if cur := s.CurID(); cur != nil {
		id = cur.String()
	}
	return fmt.Sprintf("%s/%s", formatTime(s.CurLastModified()), id)
}
