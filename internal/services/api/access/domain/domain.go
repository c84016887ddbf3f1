// Package domain holds the access ports: who a request acts for and what its plan allows
package domain

import (
	"context"
	"net/http"

	"swiftconcur/internal/core/tier"
)

// AuthPort resolves the repository behind a request's credentials
type AuthPort interface {
	Authenticate(r *http.Request) (repoID string, err error)
}

// TierPort resolves a repository's plan
type TierPort interface {
	TierOf(ctx context.Context, repoID string) (tier.Tier, error)
}

// Limits is the body of GET /limits
type Limits struct {
	RepoID string    `json:"repo_id"`
	Tier   tier.Tier `json:"tier"`
}

type tierKey struct{}

// WithTier stores the resolved tier on ctx
func WithTier(ctx context.Context, t tier.Tier) context.Context {
	return context.WithValue(ctx, tierKey{}, t)
}

// TierFrom returns the tier resolved earlier in the chain
func TierFrom(ctx context.Context) (tier.Tier, bool) {
	t, ok := ctx.Value(tierKey{}).(tier.Tier)
	return t, ok
}
