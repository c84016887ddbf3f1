// @title         SwiftConcur API
// @version       0.1.0
// @description   Ingests Swift concurrency warning reports from CI and streams repository activity

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swiftconcur/internal/modkit/httpkit"
	"swiftconcur/internal/platform/async"
	"swiftconcur/internal/platform/config"
	"swiftconcur/internal/platform/logger"
	phttp "swiftconcur/internal/platform/net/http"
	"swiftconcur/internal/platform/net/middleware"
	"swiftconcur/internal/platform/store"
	"swiftconcur/internal/platform/store/schema"

	"swiftconcur/internal/services/api"
)

func main() {
	fMigrate := flag.Bool("migrate", false, "apply the embedded schema before serving")
	flag.Parse()

	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.FromEnv("swiftconcur-api", root), store.WithLogger(*l))
	if err != nil {
		l.Fatal().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if *fMigrate {
		if err := migrate(ctx, st); err != nil {
			l.Fatal().Err(err).Msg("schema apply failed")
		}
	}

	// post-response work (notify, enqueue) runs on a bounded pool
	bgCfg := apiCfg.Prefix("BG_")
	pool := async.New(async.Options{
		Name:    "api",
		Workers: bgCfg.MayInt("WORKERS", 8),
		Queue:   bgCfg.MayInt("QUEUE", 1024),
	})

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)

	mounted := api.Mount(srv.Router(), api.Options{
		Config: root,
		Store:  st,
		Bg:     pool,
		Stack: httpkit.StackOptions{
			CORS:        middleware.CORSOptions{AllowedOrigins: apiCfg.MayCSV("CORS_ORIGINS", []string{"*"})},
			SlowRequest: apiCfg.MayDuration("SLOW_REQUEST", time.Second),
			Heartbeat:   "/healthz",
		},
		RequestTimeout: apiCfg.MayDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxInFlight:    apiCfg.MayInt("MAX_IN_FLIGHT", 256),
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
		EnableMetrics:  apiCfg.MayBool("METRICS", true),
	})

	if err := srv.Run(ctx, apiCfg.MayDuration("SHUTDOWN_GRACE", 15*time.Second)); err != nil {
		l.Error().Err(err).Msg("http server stopped")
	}

	// drain in dependency order: in-flight fan-out first, then live sockets
	grace := bgCfg.MayDuration("GRACE", 5*time.Second)
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := pool.Shutdown(sctx); err != nil {
		l.Warn().Err(err).Msg("background pool did not drain")
	}
	if err := mounted.Hub.Close(sctx); err != nil {
		l.Warn().Err(err).Msg("live hub did not stop cleanly")
	}
}

func migrate(ctx context.Context, st *store.Store) error {
	if st.PG != nil {
		exec := schema.ExecFunc(func(ctx context.Context, sql string, args ...any) error {
			_, err := st.PG.Exec(ctx, sql, args...)
			return err
		})
		if err := schema.Apply(ctx, exec, schema.Postgres()); err != nil {
			return err
		}
	}
	if st.CH != nil {
		if err := schema.Apply(ctx, st.CH, schema.ClickHouse()); err != nil {
			return err
		}
	}
	return nil
}
