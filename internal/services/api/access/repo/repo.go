// Package repo reads repository credentials and plans
package repo

import (
	"context"

	"swiftconcur/internal/modkit/repokit"
)

// Repo is the access persistence surface
type Repo interface {
	// RepoIDByToken returns the repository of an unrevoked token hash
	RepoIDByToken(ctx context.Context, tokenSHA256 string) (string, error)
	// TierName returns the plan column of a repository
	TierName(ctx context.Context, repoID string) (string, error)
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

func (r *queries) RepoIDByToken(ctx context.Context, tokenSHA256 string) (string, error) {
	const sql = `
		SELECT repo_id::text
		  FROM repository_tokens
		 WHERE token_sha256 = $1
		   AND revoked_at IS NULL
	`
	var id string
	err := r.q.QueryRow(ctx, sql, tokenSHA256).Scan(&id)
	return id, err
}

func (r *queries) TierName(ctx context.Context, repoID string) (string, error) {
	var name string
	err := r.q.QueryRow(ctx, `SELECT tier FROM repositories WHERE id = $1::uuid`, repoID).Scan(&name)
	return name, err
}
