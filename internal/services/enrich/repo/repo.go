// Package repo is the Postgres-backed enrichment queue
package repo

import (
	"context"
	"encoding/json"
	"time"

	"swiftconcur/internal/modkit/repokit"
	"swiftconcur/internal/services/enrich/domain"

	"github.com/google/uuid"
)

// Repo is the queue persistence surface
type Repo interface {
	Enqueue(ctx context.Context, m domain.Message) error
	// Lease claims up to limit ready messages for leaseFor, bumping each attempt
	Lease(ctx context.Context, workerID string, limit int, leaseFor time.Duration) ([]domain.Message, error)
	// Ack removes a message for good
	Ack(ctx context.Context, id string) error
	// Requeue releases the lease and hides the message until next
	Requeue(ctx context.Context, id string, lastErr string, next time.Time) error
	// SetSummary stores the summary unless one is already set
	SetSummary(ctx context.Context, runID, summary string) (bool, error)
}

type (
	// PG binds Repo to Postgres
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns the Postgres binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches q
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Enqueue(ctx context.Context, m domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	body, err := json.Marshal(domain.Payload{Warnings: m.Warnings, Metadata: m.Metadata})
	if err != nil {
		return err
	}
	const sql = `
		INSERT INTO enrichment_queue (id, repo_id, run_id, payload)
		VALUES ($1::uuid, $2::uuid, $3::uuid, $4::jsonb)
		ON CONFLICT (run_id) DO NOTHING
	`
	_, err = r.q.Exec(ctx, sql, m.ID, m.RepoID, m.RunID, body)
	return err
}

func (r *queries) Lease(ctx context.Context, workerID string, limit int, leaseFor time.Duration) ([]domain.Message, error) {
	if workerID == "" {
		workerID = uuid.NewString()
	}
	const sql = `
		WITH ready AS (
			SELECT id
			  FROM enrichment_queue
			 WHERE (leased_by IS NULL AND next_attempt_at <= now())
			    OR lease_expires_at < now()
			 ORDER BY next_attempt_at ASC
			 LIMIT $1
			 FOR UPDATE SKIP LOCKED
		)
		UPDATE enrichment_queue q
		   SET attempt          = q.attempt + 1,
		       leased_by        = $2,
		       lease_expires_at = now() + make_interval(secs => $3)
		 WHERE q.id IN (SELECT id FROM ready)
		RETURNING q.id::text, q.repo_id::text, q.run_id::text, q.payload, q.attempt
	`
	rows, err := r.q.Query(ctx, sql, limit, workerID, leaseFor.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			m   domain.Message
			raw []byte
		)
		if err := rows.Scan(&m.ID, &m.RepoID, &m.RunID, &raw, &m.Attempt); err != nil {
			return nil, err
		}
		var p domain.Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		m.Warnings, m.Metadata = p.Warnings, p.Metadata
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *queries) Ack(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM enrichment_queue WHERE id = $1::uuid`, id)
	return err
}

func (r *queries) Requeue(ctx context.Context, id string, lastErr string, next time.Time) error {
	const sql = `
		UPDATE enrichment_queue
		   SET leased_by        = NULL,
		       lease_expires_at = NULL,
		       last_error       = NULLIF($2, ''),
		       next_attempt_at  = $3
		 WHERE id = $1::uuid
	`
	_, err := r.q.Exec(ctx, sql, id, lastErr, next)
	return err
}

func (r *queries) SetSummary(ctx context.Context, runID, summary string) (bool, error) {
	tag, err := r.q.Exec(ctx, `UPDATE runs SET summary = $2 WHERE id = $1::uuid AND summary IS NULL`, runID, summary)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
