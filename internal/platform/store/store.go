// Package store opens the optional backends and exposes them behind small seams
package store

import (
	"context"
	"errors"
	"fmt"

	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/store/blob"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// Store holds the opened backends; disabled ones stay nil
type Store struct {
	Log logger.Logger

	// PG is the row store
	PG TxRunner
	// CH is the analytics mirror
	CH Clickhouse
	// RDS backs rate limit counters
	RDS *redis.Client
	// Blob holds raw report artifacts
	Blob BlobStore
}

// Row is the single-row scan contract
type Row interface {
	Scan(dest ...any) error
}

// Rows is the result set contract
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// CommandTag reports what a write touched
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the SQL surface repos use
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner runs fn inside a transaction; fn's error rolls back
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse is the columnar write seam
type Clickhouse interface {
	Exec(ctx context.Context, sql string, args ...any) error
	InsertRows(ctx context.Context, table string, rows [][]any) error
	Ping(ctx context.Context) error
	Close() error
}

// BlobStore is an opaque key-value store for raw payloads
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ErrBlobNotFound is returned by BlobStore.Get for unknown keys
var ErrBlobNotFound = blob.ErrNotFound

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }

// IsNoRows reports whether err is the driver's empty result error
func IsNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// Open opens every enabled backend; on failure the ones already opened are closed
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: *logger.Named("store")}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	steps := []struct {
		on   bool
		name string
		open func() error
	}{
		{cfg.PG.Enabled, "pg", func() (err error) { s.PG, err = openPG(ctx, cfg.PG, s.Log); return }},
		{cfg.CH.Enabled, "ch", func() (err error) { s.CH, err = openCH(ctx, cfg.AppName, cfg.CH); return }},
		{cfg.RDS.Enabled, "redis", func() (err error) { s.RDS, err = openRedis(ctx, cfg.RDS); return }},
		{cfg.Blob.Enabled, "blob", func() (err error) { s.Blob, err = openBlob(cfg.Blob); return }},
	}
	for _, st := range steps {
		if !st.on {
			continue
		}
		if err := st.open(); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
		s.Log.Info().Str("backend", st.name).Msg("backend ready")
	}
	return s, nil
}

// Checks returns the named readiness probes for the opened backends
func (s *Store) Checks() map[string]Pinger {
	out := map[string]Pinger{}
	if p, ok := s.PG.(Pinger); ok {
		out["pg"] = p
	}
	if s.CH != nil {
		out["ch"] = s.CH
	}
	if s.RDS != nil {
		out["redis"] = redisPinger{s.RDS}
	}
	if p, ok := s.Blob.(Pinger); ok {
		out["blob"] = p
	}
	return out
}

// Guard pings every opened backend
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for name, p := range s.Checks() {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases every opened backend
func (s *Store) Close(_ context.Context) error {
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if s.RDS != nil {
		errs = append(errs, s.RDS.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }
