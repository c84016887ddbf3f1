// Package service authenticates repository tokens and resolves plans
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"swiftconcur/internal/core/tier"
	"swiftconcur/internal/modkit/repokit"
	perr "swiftconcur/internal/platform/errors"
	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/net/middleware"
	"swiftconcur/internal/platform/store"
	"swiftconcur/internal/services/api/access/repo"
)

// Svc implements domain.AuthPort and domain.TierPort
type Svc struct {
	db      repokit.TxRunner
	binder  repokit.Binder[repo.Repo]
	catalog tier.Catalog
}

// New constructs the service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], catalog tier.Catalog) *Svc {
	if db == nil {
		panic("access.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("access.Service requires a non nil Repo binder")
	}
	return &Svc{db: db, binder: binder, catalog: catalog}
}

// HashToken is the stored form of a bearer token
func HashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// Authenticate resolves the bearer token to its repository
func (s *Svc) Authenticate(r *http.Request) (string, error) {
	tok := middleware.BearerToken(r)
	if tok == "" {
		return "", perr.Unauthorizedf("missing bearer token")
	}
	id, err := s.binder.Bind(s.db).RepoIDByToken(r.Context(), HashToken(tok))
	switch {
	case store.IsNoRows(err):
		return "", perr.Unauthorizedf("invalid token")
	case err != nil:
		logger.C(r.Context()).Error().Err(err).Msg("token lookup failed")
		return "", perr.Wrap(err, perr.ErrorCodeUnavailable, "token lookup unavailable")
	}
	return id, nil
}

// TierOf resolves repoID's plan; lookup failures are unavailable, not forbidden
func (s *Svc) TierOf(ctx context.Context, repoID string) (tier.Tier, error) {
	name, err := s.binder.Bind(s.db).TierName(ctx, repoID)
	switch {
	case store.IsNoRows(err):
		return tier.Tier{}, perr.Forbiddenf("repository %s has no plan", repoID)
	case err != nil:
		return tier.Tier{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "tier lookup unavailable")
	}
	t, err := s.catalog.Resolve(name)
	if err != nil {
		return tier.Tier{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "tier lookup returned an unknown plan")
	}
	return t, nil
}
