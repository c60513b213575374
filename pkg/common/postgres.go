package common

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahrav/caom2-harvester/pkg/common/logger"
)

// ConnectPostgresWithRetry opens a pgx pool from cfg and pings it, retrying
// with exponential backoff for up to maxElapsed.
func ConnectPostgresWithRetry(
	ctx context.Context,
	log *logger.Logger,
	cfg *pgxpool.Config,
	maxElapsed time.Duration,
) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = maxElapsed
	expBackoff.InitialInterval = time.Second

	operation := func() error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			log.Warn(ctx, "Failed to create postgres pool, will retry", "host", cfg.ConnConfig.Host, "error", err)
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			log.Warn(ctx, "Failed to reach postgres, will retry", "host", cfg.ConnConfig.Host, "error", err)
			return err
		}
		pool = p
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres after retries: %w", err)
	}

	return pool, nil
}
