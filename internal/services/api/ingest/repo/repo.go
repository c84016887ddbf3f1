// Package repo persists runs and their warnings in Postgres
package repo

import (
	"context"
	"encoding/json"

	"swiftconcur/internal/core/report"
	"swiftconcur/internal/modkit/repokit"
	"swiftconcur/internal/platform/store"
	pstrings "swiftconcur/internal/platform/strings"
	"swiftconcur/internal/services/api/ingest/domain"
)

// Repo is the run persistence surface
type Repo interface {
	Exists(ctx context.Context, runID string) (bool, error)
	InsertRun(ctx context.Context, run domain.Run) error
	InsertWarnings(ctx context.Context, runID string, ws []report.Warning) error
	Get(ctx context.Context, repoID, runID string) (domain.Run, error)
	List(ctx context.Context, repoID string, limit int) ([]domain.Run, error)
	Warnings(ctx context.Context, repoID, runID string) ([]report.Warning, error)
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

func (r *queries) Exists(ctx context.Context, runID string) (bool, error) {
	return store.Scalar[bool](ctx, r.q, `SELECT EXISTS (SELECT 1 FROM runs WHERE id = $1::uuid)`, runID)
}

func (r *queries) InsertRun(ctx context.Context, run domain.Run) error {
	const sql = `
		INSERT INTO runs (id, repo_id, warnings_count, blob_key, commit_sha, branch,
		                  pull_request, scheme, configuration, swift_version, reported_at)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	md := run.Metadata
	_, err := r.q.Exec(ctx, sql,
		run.ID, run.RepoID, run.WarningsCount, run.BlobKey, md.CommitSHA, md.Branch,
		md.PullRequest, pstrings.SQLNull(md.Scheme), pstrings.SQLNull(md.Configuration),
		pstrings.SQLNull(md.SwiftVersion), md.Timestamp,
	)
	return err
}

// InsertWarnings writes ws in one statement, keeping submission order in ord
func (r *queries) InsertWarnings(ctx context.Context, runID string, ws []report.Warning) error {
	if len(ws) == 0 {
		return nil
	}
	body, err := json.Marshal(ws)
	if err != nil {
		return err
	}
	const sql = `
		INSERT INTO warnings (run_id, ord, warning_id, type, severity, file_path, line_number,
		                      column_number, message, code_context, suggested_fix)
		SELECT $1::uuid, w.ord - 1, w.id, w.type, w.severity, w.file_path, w.line_number,
		       w.column_number, w.message, COALESCE(w.code_context, '{}'::jsonb), w.suggested_fix
		  FROM ROWS FROM (
		           jsonb_to_recordset($2::jsonb) AS (id text, type text, severity text, file_path text,
		               line_number int, column_number int, message text, code_context jsonb, suggested_fix text)
		       ) WITH ORDINALITY AS w(id, type, severity, file_path, line_number, column_number,
		                              message, code_context, suggested_fix, ord)
	`
	_, err = r.q.Exec(ctx, sql, runID, body)
	return err
}

const runCols = `
	id::text, repo_id::text, created_at, warnings_count, blob_key, summary,
	commit_sha, branch, pull_request, COALESCE(scheme, ''), COALESCE(configuration, ''),
	COALESCE(swift_version, ''), reported_at
`

func scanRun(row store.Row) (domain.Run, error) {
	var run domain.Run
	md := &run.Metadata
	err := row.Scan(
		&run.ID, &run.RepoID, &run.CreatedAt, &run.WarningsCount, &run.BlobKey, &run.Summary,
		&md.CommitSHA, &md.Branch, &md.PullRequest, &md.Scheme, &md.Configuration,
		&md.SwiftVersion, &md.Timestamp,
	)
	return run, err
}

func (r *queries) Get(ctx context.Context, repoID, runID string) (domain.Run, error) {
	return scanRun(r.q.QueryRow(ctx,
		`SELECT `+runCols+` FROM runs WHERE id = $1::uuid AND repo_id = $2::uuid`, runID, repoID))
}

func (r *queries) List(ctx context.Context, repoID string, limit int) ([]domain.Run, error) {
	return store.Many(ctx, r.q, func(row store.Row) (domain.Run, error) { return scanRun(row) },
		`SELECT `+runCols+` FROM runs WHERE repo_id = $1::uuid ORDER BY created_at DESC, id LIMIT $2`,
		repoID, limit)
}

func (r *queries) Warnings(ctx context.Context, repoID, runID string) ([]report.Warning, error) {
	const sql = `
		SELECT w.warning_id, w.type, w.severity, w.file_path, w.line_number, w.column_number,
		       w.message, w.code_context, w.suggested_fix
		  FROM warnings w
		  JOIN runs r ON r.id = w.run_id
		 WHERE w.run_id = $1::uuid AND r.repo_id = $2::uuid
		 ORDER BY w.ord
	`
	return store.Many(ctx, r.q, func(row store.Row) (report.Warning, error) {
		var (
			w  report.Warning
			cc []byte
		)
		if err := row.Scan(&w.ID, &w.Type, &w.Severity, &w.FilePath, &w.LineNumber, &w.ColumnNumber,
			&w.Message, &cc, &w.SuggestedFix); err != nil {
			return w, err
		}
		if len(cc) > 0 {
			if err := json.Unmarshal(cc, &w.CodeContext); err != nil {
				return w, err
			}
		}
		return w, nil
	}, sql, runID, repoID)
}
