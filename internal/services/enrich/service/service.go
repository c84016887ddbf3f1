// Package service is the enrichment queue consumer
package service

import (
	"context"
	"sync"
	"time"

	"swiftconcur/internal/modkit/repokit"
	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/metrics"
	"swiftconcur/internal/services/enrich/domain"
	"swiftconcur/internal/services/enrich/repo"

	"github.com/google/uuid"
)

// Config tunes the consumer
type Config struct {
	WorkerID    string
	Concurrency int
	Batch       int
	MaxAttempts int
	LeaseFor    time.Duration
	Poll        time.Duration
	RetryBase   time.Duration
	RetryMax    time.Duration
}

func (c Config) withDefaults() Config {
	if c.WorkerID == "" {
		c.WorkerID = "enricher-" + uuid.NewString()[:8]
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Batch <= 0 {
		c.Batch = 16
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = domain.DefaultMaxAttempts
	}
	if c.LeaseFor <= 0 {
		c.LeaseFor = 2 * time.Minute
	}
	if c.Poll <= 0 {
		c.Poll = time.Second
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 5 * time.Second
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 5 * time.Minute
	}
	return c
}

// Svc implements domain.EnqueuePort and domain.WorkerPort
type Svc struct {
	db       repokit.TxRunner
	binder   repokit.Binder[repo.Repo]
	enricher domain.Enricher
	sink     domain.FactSink
	cfg      Config
	now      func() time.Time
}

// New constructs the consumer; sink may be nil when the analytics mirror is off
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], enricher domain.Enricher, sink domain.FactSink, cfg Config) *Svc {
	if db == nil {
		panic("enrich.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("enrich.Service requires a non nil Repo binder")
	}
	if enricher == nil {
		panic("enrich.Service requires a non nil Enricher")
	}
	return &Svc{db: db, binder: binder, enricher: enricher, sink: sink, cfg: cfg.withDefaults(), now: time.Now}
}

// Enqueue adds a job; a second job for the same run is ignored
func (s *Svc) Enqueue(ctx context.Context, m domain.Message) error {
	return s.binder.Bind(s.db).Enqueue(ctx, m)
}

// Run polls the queue until ctx ends
func (s *Svc) Run(ctx context.Context) error {
	log := logger.Named("enrich-worker")
	log.Info().Str("worker", s.cfg.WorkerID).Int("concurrency", s.cfg.Concurrency).Msg("enrichment worker started")
	t := time.NewTicker(s.cfg.Poll)
	defer t.Stop()
	for {
		n, err := s.Drain(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("lease failed")
		}
		// a full batch means more is probably waiting
		if err == nil && n == s.cfg.Batch {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Drain leases one batch and processes it with bounded concurrency
func (s *Svc) Drain(ctx context.Context) (int, error) {
	msgs, err := s.binder.Bind(s.db).Lease(ctx, s.cfg.WorkerID, s.cfg.Batch, s.cfg.LeaseFor)
	if err != nil {
		return 0, err
	}
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := range msgs {
		sem <- struct{}{}
		wg.Add(1)
		go func(m domain.Message) {
			defer func() { <-sem; wg.Done() }()
			s.Process(ctx, m)
		}(msgs[i])
	}
	wg.Wait()
	return len(msgs), nil
}

// Process enriches one leased message and settles it
func (s *Svc) Process(ctx context.Context, m domain.Message) domain.Outcome {
	log := logger.Named("enrich-worker").With().Str("run_id", m.RunID).Int("attempt", m.Attempt).Logger()
	r := s.binder.Bind(s.db)

	if domain.Exhausted(m.Attempt, s.cfg.MaxAttempts) {
		metrics.EnrichJob(domain.Abandon.String())
		if aerr := r.Ack(ctx, m.ID); aerr != nil {
			log.Warn().Err(aerr).Msg("ack failed, message will be redelivered")
		}
		log.Warn().Int("max_attempts", s.cfg.MaxAttempts).Msg("delivered past the attempt ceiling, acknowledged without enrichment")
		return domain.Abandon
	}

	text, err := s.enricher.Enrich(ctx, m)
	if err == nil {
		_, err = r.SetSummary(ctx, m.RunID, text)
	}

	out := domain.Decide(m.Attempt, s.cfg.MaxAttempts, err)
	metrics.EnrichJob(out.String())
	switch out {
	case domain.Done:
		if aerr := r.Ack(ctx, m.ID); aerr != nil {
			log.Warn().Err(aerr).Msg("ack failed, message will be redelivered")
		}
		s.mirror(ctx, m)
	case domain.Retry:
		next := s.now().Add(s.backoff(m.Attempt))
		if rerr := r.Requeue(ctx, m.ID, err.Error(), next); rerr != nil {
			log.Warn().Err(rerr).Msg("requeue failed, lease expiry will redeliver")
		}
		log.Debug().Err(err).Time("next", next).Msg("enrichment failed, retrying")
	case domain.Abandon:
		if aerr := r.Ack(ctx, m.ID); aerr != nil {
			log.Warn().Err(aerr).Msg("ack failed, message will be redelivered")
		}
		log.Warn().Err(err).Int("max_attempts", s.cfg.MaxAttempts).Msg("enrichment abandoned")
	}
	return out
}

func (s *Svc) mirror(ctx context.Context, m domain.Message) {
	if s.sink == nil || len(m.Warnings) == 0 {
		return
	}
	if err := s.sink.WriteFacts(ctx, Facts(m)); err != nil {
		logger.Named("enrich-worker").Warn().Err(err).Str("run_id", m.RunID).Msg("analytics mirror write failed")
	}
}

// backoff doubles from RetryBase per attempt, capped at RetryMax
func (s *Svc) backoff(attempt int) time.Duration {
	d := s.cfg.RetryBase
	for i := 1; i < attempt && d < s.cfg.RetryMax; i++ {
		d *= 2
	}
	return min(d, s.cfg.RetryMax)
}
