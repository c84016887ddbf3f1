package store

import (
	"context"
	"fmt"
	"time"

	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/store/blob"
	chx "swiftconcur/internal/platform/store/ch"
	"swiftconcur/internal/platform/store/pg"
	"swiftconcur/internal/platform/store/rds"

	"github.com/redis/go-redis/v9"
)

// pingBackoff is the boot retry schedule shared by the openers
var pingBackoff = struct {
	start, ceiling, timeout time.Duration
}{150 * time.Millisecond, 2 * time.Second, 3 * time.Second}

// retryPing pings until ok, ctx ends, or attempts run out
func retryPing(ctx context.Context, attempts int, ping func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var last error
	wait := pingBackoff.start
	for i := 0; i < attempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, pingBackoff.timeout)
		last = ping(pctx)
		cancel()
		if last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, pingBackoff.ceiling)
	}
	return fmt.Errorf("ping failed after %d attempts: %w", attempts, last)
}

func openPG(ctx context.Context, cfg PGConfig, log logger.Logger) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.LogSQL {
		tracer = pg.Tracer(log)
	}
	p, err := pg.Open(ctx, pg.Config{URL: cfg.URL, MaxConns: cfg.MaxConns, SlowMs: cfg.SlowQueryMs}, tracer, nil)
	if err != nil {
		return nil, err
	}
	if err := retryPing(ctx, cfg.ConnectRetries, p.Pool.Ping); err != nil {
		p.Close()
		return nil, err
	}
	return NewPGAdapter(p), nil
}

func openCH(ctx context.Context, app string, cfg CHConfig) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{DSN: cfg.URL, Role: app})
	if err != nil {
		return nil, err
	}
	if err := retryPing(ctx, 5, c.Ping); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func openRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	c := rds.New(rds.Config{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := retryPing(ctx, 5, func(ctx context.Context) error { return c.Ping(ctx).Err() }); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func openBlob(cfg BlobConfig) (BlobStore, error) {
	return blob.OpenFS(cfg.Dir)
}
