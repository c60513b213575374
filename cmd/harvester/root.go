package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/caom2-harvester/internal/app/harvest"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
	harvestStore "github.com/ahrav/caom2-harvester/internal/infra/storage/harvest/postgres"
	"github.com/ahrav/caom2-harvester/pkg/common/otel"
	"github.com/ahrav/caom2-harvester/pkg/config"
)

// errHarvestAborted fails the command when a harvester stopped on a failed
// record without returning an error of its own.
var errHarvestAborted = errors.New("harvest aborted")

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "harvester",
		Short:         "Propagate CAOM-2 deletions from a source catalogue to a destination",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runHarvest(ctx, cmd)
		},
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newDumpCommand())

	return cmd
}

func runHarvest(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig(ctx, cmd.Flags())
	if err != nil {
		return err
	}

	log := newLogger(cfg)

	tp, mp, telemetryTeardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:        serviceName(cfg),
		ExporterEndpoint:   cfg.Telemetry.Endpoint,
		Probability:        1,
		ResourceAttributes: cfg.Telemetry.Attributes,
		InsecureExporter:   true,
	})
	if err != nil {
		log.Error(ctx, "Failed to initialize telemetry", "error", err)
		return err
	}
	defer telemetryTeardown(context.WithoutCancel(ctx))

	tracer := tp.Tracer(serviceName(cfg))

	metrics, err := harvest.NewMetrics(mp)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	source, err := openPool(ctx, log, cfg.Source.DSN)
	if err != nil {
		log.Error(ctx, "Failed to connect to source", "source", cfg.Source.Name, "error", err)
		return err
	}
	defer source.Close()

	destination, err := openPool(ctx, log, cfg.Destination.DSN)
	if err != nil {
		log.Error(ctx, "Failed to connect to destination", "destination", cfg.Destination.Name, "error", err)
		return err
	}
	defer destination.Close()

	if cfg.MigrationsDir != "" {
		if err := storage.RunMigrations(destination, cfg.MigrationsDir); err != nil {
			log.Error(ctx, "Failed to run migrations", "error", err)
			return err
		}
		log.Info(ctx, "Migrations applied successfully")
	}

	kinds, err := parseKinds(cfg.Harvest.Kinds)
	if err != nil {
		log.Error(ctx, "Invalid entity kind", "error", err)
		return err
	}

	backends := harvestStore.NewBackends(source, destination, tracer)

	// Each kind owns a distinct cursor, so their harvesters run concurrently.
	g, gCtx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		h := harvest.NewDeletionHarvester(harvest.Config{
			Source:    cfg.Source.Name,
			Kind:      kind,
			BatchSize: cfg.Harvest.BatchSize,
			DryRun:    cfg.Harvest.DryRun,
			InitState: cfg.Harvest.InitState,
			Full:      cfg.Harvest.Full,
			Threads:   cfg.Harvest.Threads,
			RateLimit: cfg.Harvest.MaxDeletesPerSecond,
		}, backends, log, metrics, tracer)

		g.Go(func() error {
			report, err := h.Run(gCtx)
			log.Info(gCtx, "Harvest finished",
				"kind", kind.String(),
				"batches", report.Batches,
				"found", report.Found,
				"ingested", report.Ingested,
				"failed", report.Failed,
				"aborted", report.Aborted,
			)
			return harvestResult(kind, report, err)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error(ctx, "Harvest failed", "error", err)
		return err
	}
	return nil
}

// parseKinds resolves every configured kind up front so a bad name fails the
// command before any harvester starts.
func parseKinds(names []string) ([]domain.EntityKind, error) {
	kinds := make([]domain.EntityKind, 0, len(names))
	for _, name := range names {
		kind, err := domain.ParseEntityKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func harvestResult(kind domain.EntityKind, report harvest.Report, err error) error {
	switch {
	case err != nil:
		return fmt.Errorf("harvest %s: %w", kind, err)
	case report.Aborted:
		return fmt.Errorf("harvest %s: %w", kind, errHarvestAborted)
	default:
		return nil
	}
}
