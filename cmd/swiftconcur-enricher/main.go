package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"swiftconcur/internal/modkit"
	"swiftconcur/internal/platform/config"
	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/store"

	enrichmod "swiftconcur/internal/services/enrich/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	var (
		fConc   = flag.Int("concurrency", 0, "jobs processed in parallel (ENRICH_CONCURRENCY)")
		fBatch  = flag.Int("batch", 0, "jobs leased per poll (ENRICH_BATCH)")
		fMaxAtt = flag.Int("max_attempts", 0, "attempts before a job is abandoned (ENRICH_MAX_ATTEMPTS)")
		fOnce   = flag.Bool("once", false, "process one leased batch and exit")
	)
	flag.Parse()

	if *fConc > 0 {
		mustSetEnv("ENRICH_CONCURRENCY", fmt.Sprintf("%d", *fConc))
	}
	if *fBatch > 0 {
		mustSetEnv("ENRICH_BATCH", fmt.Sprintf("%d", *fBatch))
	}
	if *fMaxAtt > 0 {
		mustSetEnv("ENRICH_MAX_ATTEMPTS", fmt.Sprintf("%d", *fMaxAtt))
	}

	root := config.New()
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the worker needs the row store and, when enabled, the analytics mirror
	cfg := store.FromEnv("swiftconcur-enricher", root)
	cfg.RDS.Enabled = false
	cfg.Blob.Enabled = false

	st, err := store.Open(ctx, cfg, store.WithLogger(*l))
	if err != nil {
		l.Fatal().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	mod := enrichmod.New(modkit.DepsFrom(st, root, nil))
	worker := modkit.MustPortsOf[enrichmod.Ports](mod).Worker

	if *fOnce {
		n, err := worker.Drain(ctx)
		if err != nil {
			l.Fatal().Err(err).Msg("enrich drain failed")
		}
		l.Info().Int("jobs", n).Msg("enrich drain done")
		return
	}

	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		l.Fatal().Err(err).Msg("enrich worker failed")
	}
}
