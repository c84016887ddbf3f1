// Package service is the admission gateway and persistence coordinator for CI reports
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"swiftconcur/internal/core/report"
	"swiftconcur/internal/modkit/repokit"
	"swiftconcur/internal/platform/async"
	perr "swiftconcur/internal/platform/errors"
	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/metrics"
	"swiftconcur/internal/platform/net/http/bind"
	"swiftconcur/internal/platform/store"
	"swiftconcur/internal/services/api/ingest/domain"
	"swiftconcur/internal/services/api/ingest/repo"
	livedomain "swiftconcur/internal/services/api/live/domain"
	enrichdomain "swiftconcur/internal/services/enrich/domain"

	"github.com/google/uuid"
)

// Config tunes admission
type Config struct {
	// MaxBytes is the ceiling on the report file
	MaxBytes int64
}

// Svc implements domain.ServicePort
type Svc struct {
	db       repokit.TxRunner
	binder   repokit.Binder[repo.Repo]
	blob     store.BlobStore
	enqueuer enrichdomain.EnqueuePort
	notifier livedomain.NotifyPort
	bg       async.Runner
	cfg      Config
	now      func() time.Time
}

// New constructs the service. blob, enqueuer and notifier may be nil; the matching step is skipped
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Repo],
	blob store.BlobStore,
	enqueuer enrichdomain.EnqueuePort,
	notifier livedomain.NotifyPort,
	bg async.Runner,
	cfg Config,
) *Svc {
	if db == nil {
		panic("ingest.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("ingest.Service requires a non nil Repo binder")
	}
	if bg == nil {
		bg = async.Inline{}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = domain.DefaultMaxBytes
	}
	return &Svc{db: db, binder: binder, blob: blob, enqueuer: enqueuer, notifier: notifier, bg: bg, cfg: cfg, now: time.Now}
}

// MaxBytes is the configured file ceiling; transports read at most one byte past it
func (s *Svc) MaxBytes() int64 { return s.cfg.MaxBytes }

// Ingest validates a submission, persists it and schedules notify and enrichment
func (s *Svc) Ingest(ctx context.Context, in domain.Submission) (out domain.Accepted, err error) {
	start := s.now()
	defer func() {
		metrics.ObserveReport(perr.Class(err), out.WarningsCount, s.now().Sub(start))
	}()

	rep, err := s.admit(in)
	if err != nil {
		return domain.Accepted{}, err
	}
	if err := s.persist(ctx, in, rep); err != nil {
		return domain.Accepted{}, err
	}
	s.fanOut(in.RepoID, rep)

	return domain.Accepted{
		ID:               rep.RunID,
		Status:           domain.StatusQueued,
		WarningsCount:    rep.Count(),
		ProcessingTimeMS: s.now().Sub(start).Milliseconds(),
	}, nil
}

// admit runs every check that happens before a write
func (s *Svc) admit(in domain.Submission) (report.Report, error) {
	var zero report.Report
	switch n := int64(len(bytes.TrimSpace(in.Body))); {
	case n == 0:
		return zero, perr.Validationf("%s is empty", domain.FilePart)
	case int64(len(in.Body)) > s.cfg.MaxBytes:
		return zero, perr.TooLargef("%s exceeds %d bytes", domain.FilePart, s.cfg.MaxBytes)
	}

	// count before validating so an oversized list fails on the cap, not on its contents
	var head struct {
		Warnings []json.RawMessage `json:"warnings"`
	}
	if err := json.Unmarshal(in.Body, &head); err == nil && len(head.Warnings) > report.HardCap {
		return zero, perr.Validationf("report carries %d warnings; the hard cap is %d per report",
			len(head.Warnings), report.HardCap)
	}

	rep, err := bind.DecodeJSON[report.Report](bytes.NewReader(in.Body), bind.JSONOptions{
		MaxBytes:        s.cfg.MaxBytes,
		DisallowUnknown: true,
	})
	if err != nil {
		return zero, err
	}
	if rep.RepoID != in.RepoID {
		return zero, perr.WithField(perr.Forbiddenf("report repo_id does not match the authenticated repository"), "repo_id")
	}
	if limit := in.Tier.MaxWarningsPerRun; rep.Count() > limit {
		return zero, perr.Forbiddenf("report carries %d warnings; the %s plan allows %d per run",
			rep.Count(), in.Tier.Name, limit)
	}
	return rep, nil
}

// persist writes the blob, then the rows. The rows are authoritative: a blob
// failure is logged and the run still lands; a row failure fails the request
func (s *Svc) persist(ctx context.Context, in domain.Submission, rep report.Report) error {
	log := logger.C(ctx)

	exists, err := s.binder.Bind(s.db).Exists(ctx, rep.RunID)
	if err != nil {
		return perr.FromPostgres(err, "check run")
	}
	if exists {
		return perr.WithField(perr.Conflictf("run %s was already submitted", rep.RunID), "run_id")
	}

	key := report.BlobKey(in.RepoID, rep.RunID)
	if s.blob == nil {
		key = ""
	} else if err := s.blob.Put(ctx, key, in.Body); err != nil {
		metrics.PersistFailed("blob")
		log.Warn().Err(err).Str("run_id", rep.RunID).Str("blob_key", key).Msg("raw report not stored")
		key = ""
	}

	run := domain.Run{
		ID:            rep.RunID,
		RepoID:        in.RepoID,
		WarningsCount: rep.Count(),
		BlobKey:       key,
		Metadata:      rep.Metadata,
	}
	err = repokit.WithTx(ctx, s.db, s.binder, func(r repo.Repo) error {
		if err := r.InsertRun(ctx, run); err != nil {
			return err
		}
		return r.InsertWarnings(ctx, run.ID, rep.Warnings)
	})
	if err != nil {
		metrics.PersistFailed("rows")
		if perr.IsDuplicateKey(err) {
			return perr.WithField(perr.Wrap(err, perr.ErrorCodeConflict, "run was already submitted"), "run_id")
		}
		return perr.FromPostgres(err, "persist run")
	}
	return nil
}

// fanOut hands notify and enqueue to the background pool; neither is awaited
func (s *Svc) fanOut(repoID string, rep report.Report) {
	if s.notifier != nil {
		ev := livedomain.Event{
			Type:         livedomain.EventNewRun,
			RunID:        rep.RunID,
			WarningCount: rep.Count(),
			Timestamp:    s.now().UTC(),
		}
		s.bg.Go("notify", func(ctx context.Context) error {
			_, err := s.notifier.Notify(ctx, repoID, ev)
			return err
		})
	}
	if s.enqueuer != nil {
		msg := enrichdomain.Message{RepoID: repoID, RunID: rep.RunID, Warnings: rep.Warnings, Metadata: rep.Metadata}
		s.bg.Go("enqueue", func(ctx context.Context) error {
			return s.enqueuer.Enqueue(ctx, msg)
		})
	}
}

// Get returns one run of repoID
func (s *Svc) Get(ctx context.Context, repoID, runID string) (domain.Run, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return domain.Run{}, perr.NotFoundf("run %s not found", runID)
	}
	run, err := s.binder.Bind(s.db).Get(ctx, repoID, runID)
	if store.IsNoRows(err) {
		return domain.Run{}, perr.NotFoundf("run %s not found", runID)
	}
	if err != nil {
		return domain.Run{}, perr.FromPostgres(err, "get run")
	}
	return run, nil
}

// List returns the latest runs of repoID
func (s *Svc) List(ctx context.Context, repoID string, in domain.ListInput) ([]domain.Run, error) {
	if err := bind.Validate(in); err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit == 0 {
		limit = domain.DefaultListLimit
	}
	runs, err := s.binder.Bind(s.db).List(ctx, repoID, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "list runs")
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	return runs, nil
}

// Warnings returns the persisted warnings of one run of repoID
func (s *Svc) Warnings(ctx context.Context, repoID, runID string) ([]report.Warning, error) {
	if _, err := s.Get(ctx, repoID, runID); err != nil {
		return nil, err
	}
	ws, err := s.binder.Bind(s.db).Warnings(ctx, repoID, runID)
	if err != nil {
		return nil, perr.FromPostgres(err, "list warnings")
	}
	if ws == nil {
		ws = []report.Warning{}
	}
	return ws, nil
}
