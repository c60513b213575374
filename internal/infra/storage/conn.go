package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahrav/caom2-harvester/internal/db"
)

// Querier is a handle queries can run on that can also open a (nested)
// transaction. Both *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	db.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// Conn yields the handle a store should use for its next statement: the open
// transaction when there is one, otherwise the pool.
type Conn interface {
	Querier() Querier
}

// PoolConn is a Conn that always uses the pool.
type PoolConn struct{ Pool *pgxpool.Pool }

// Querier returns the pool.
func (c PoolConn) Querier() Querier { return c.Pool }

// PGUUID converts id into its pgtype form.
func PGUUID(id uuid.UUID) pgtype.UUID { return pgtype.UUID{Bytes: id, Valid: true} }

// PGUUIDPtr converts a nullable id into its pgtype form.
func PGUUIDPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return PGUUID(*id)
}

// UUIDPtr converts a nullable pgtype UUID into a *uuid.UUID.
func UUIDPtr(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

// PGTime converts t into its pgtype form.
func PGTime(t time.Time) pgtype.Timestamptz { return pgtype.Timestamptz{Time: t, Valid: true} }

// PGTimePtr converts a nullable time into its pgtype form.
func PGTimePtr(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return PGTime(*t)
}

// TimePtr converts a nullable pgtype timestamp into a *time.Time.
func TimePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
