package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"github.com/ahrav/caom2-harvester/pkg/common"
	"github.com/ahrav/caom2-harvester/pkg/common/logger"
	"github.com/ahrav/caom2-harvester/pkg/common/otel"
	"github.com/ahrav/caom2-harvester/pkg/config"
)

const (
	serviceType    = "caom2-harvester"
	connectTimeout = 2 * time.Minute
)

// loadConfig reads the config file named by the flags and applies flag and
// environment overrides on top.
func loadConfig(ctx context.Context, fs *pflag.FlagSet) (*config.Config, error) {
	v, err := config.NewViper(fs)
	if err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg, err := config.NewFileLoader(v.GetString(config.KeyConfig)).Load(ctx)
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	hostname, _ := os.Hostname()

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	metadata := map[string]string{
		"hostname":    hostname,
		"app":         serviceType,
		"source":      cfg.Source.Name,
		"destination": cfg.Destination.Name,
	}

	return logger.NewWithMetadata(
		os.Stdout,
		logger.ParseLevel(cfg.Log.Level),
		serviceName(cfg),
		otel.GetTraceID,
		logEvents,
		metadata,
	)
}

func serviceName(cfg *config.Config) string {
	if cfg.Telemetry.ServiceName != "" {
		return cfg.Telemetry.ServiceName
	}
	return serviceType
}

// openPool connects to a catalogue with pgx tracing enabled.
func openPool(ctx context.Context, log *logger.Logger, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	return common.ConnectPostgresWithRetry(ctx, log, poolCfg, connectTimeout)
}
