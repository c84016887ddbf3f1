// Package http holds the plan and rate limit middleware plus the limits endpoint
package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"time"

	"swiftconcur/internal/core/ratelimit"
	perr "swiftconcur/internal/platform/errors"
	pnet "swiftconcur/internal/platform/net"
	phttp "swiftconcur/internal/platform/net/http"
	"swiftconcur/internal/services/api/access/domain"
)

// Limiter is the rate check the middleware runs
type Limiter interface {
	Allow(ctx context.Context, tenant, client string, limit int) ratelimit.Decision
}

// RequireTier resolves the authenticated repository's plan once and stores it on the context
func RequireTier(tiers domain.TierPort) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			repoID := pnet.RepoID(r.Context())
			if repoID == "" {
				phttp.RespondError(w, r, perr.Unauthorizedf("unauthenticated"))
				return
			}
			t, err := tiers.TierOf(r.Context(), repoID)
			if err != nil {
				phttp.RespondError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(domain.WithTier(r.Context(), t)))
		})
	}
}

// RateLimit enforces the plan's hourly request budget per (repository, client).
// Headers are written on allow and deny
func RateLimit(l Limiter) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			t, ok := domain.TierFrom(r.Context())
			if !ok {
				phttp.RespondError(w, r, perr.Internalf("rate limit without a resolved tier"))
				return
			}
			d := l.Allow(r.Context(), pnet.RepoID(r.Context()), pnet.ClientID(r.Context()), t.RequestsPerHour)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(d.RetryAfter/time.Second)))
				phttp.RespondError(w, r, perr.TooManyRequestsf("rate limit of %d requests per hour exceeded", d.Limit))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
