package http

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swiftconcur/internal/core/ratelimit"
	"swiftconcur/internal/core/tier"
	"swiftconcur/internal/platform/async"
	perr "swiftconcur/internal/platform/errors"
	pnet "swiftconcur/internal/platform/net"
	"swiftconcur/internal/platform/net/middleware"
	"swiftconcur/internal/services/api/access/domain"
)

type tierFunc func(ctx context.Context, repoID string) (tier.Tier, error)

func (f tierFunc) TierOf(ctx context.Context, repoID string) (tier.Tier, error) { return f(ctx, repoID) }

type limitFunc func(limit int) ratelimit.Decision

func (f limitFunc) Allow(_ context.Context, _, _ string, limit int) ratelimit.Decision { return f(limit) }

var baseline, _ = tier.Default().Resolve("baseline")

func authed(h stdhttp.Handler, repoID string) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ctx := pnet.WithRepo(r.Context(), repoID)
		ctx = pnet.WithClient(ctx, "10.0.0.1")
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ok() stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusNoContent) })
}

func TestRequireTier(t *testing.T) {
	t.Parallel()
	var seen tier.Tier
	next := stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		seen, _ = domain.TierFrom(r.Context())
		w.WriteHeader(stdhttp.StatusNoContent)
	})
	tiers := tierFunc(func(_ context.Context, id string) (tier.Tier, error) {
		if id == "down" {
			return tier.Tier{}, perr.Unavailablef("db down")
		}
		return baseline, nil
	})

	rec := httptest.NewRecorder()
	authed(RequireTier(tiers)(next), "repo-1").ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	if rec.Code != stdhttp.StatusNoContent || seen.Name != tier.Baseline {
		t.Fatalf("code %d tier %+v", rec.Code, seen)
	}

	rec = httptest.NewRecorder()
	authed(RequireTier(tiers)(next), "down").ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("lookup failure = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	RequireTier(tiers)(next).ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d", rec.Code)
	}
}

func TestRateLimitHeaders(t *testing.T) {
	t.Parallel()
	reset := time.Unix(1_700_003_600, 0)
	allow := limitFunc(func(limit int) ratelimit.Decision {
		return ratelimit.Decision{Allowed: true, Limit: limit, Remaining: 41, Reset: reset}
	})
	deny := limitFunc(func(limit int) ratelimit.Decision {
		return ratelimit.Decision{Limit: limit, Reset: reset, RetryAfter: 90 * time.Second}
	})
	chain := func(l Limiter) stdhttp.Handler {
		return authed(RequireTier(tierFunc(func(context.Context, string) (tier.Tier, error) { return baseline, nil }))(RateLimit(l)(ok())), "repo-1")
	}

	rec := httptest.NewRecorder()
	chain(allow).ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodPost, "/", nil))
	if rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("allow = %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "100" || rec.Header().Get("X-RateLimit-Remaining") != "41" ||
		rec.Header().Get("X-RateLimit-Reset") != "1700003600" || rec.Header().Get("Retry-After") != "" {
		t.Fatalf("allow headers = %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	chain(deny).ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodPost, "/", nil))
	if rec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("deny = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "90" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("deny headers = %v", rec.Header())
	}
	var env map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env["status_code"] != float64(429) {
		t.Fatalf("deny body = %s", rec.Body.String())
	}
}

func TestRateLimitWithoutTier(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	RateLimit(limitFunc(func(int) ratelimit.Decision { return ratelimit.Decision{Allowed: true} }))(ok()).
		ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestRateLimitIgnoresRotatingClientHeader(t *testing.T) {
	t.Parallel()
	start := time.Unix(ratelimit.Bucket(time.Now())*3600, 0)
	l := ratelimit.New(ratelimit.NewMemoryCounter(), async.Inline{}, ratelimit.WithClock(func() time.Time { return start }))
	tiers := tierFunc(func(context.Context, string) (tier.Tier, error) { return baseline, nil })
	h := authed(middleware.ClientIdentity(RequireTier(tiers)(RateLimit(l)(ok()))), "repo-1")

	for i := 1; i <= baseline.RequestsPerHour+1; i++ {
		req := httptest.NewRequest(stdhttp.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.9:4000"
		req.Header.Set("X-Client-ID", fmt.Sprintf("ci-%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		want := stdhttp.StatusNoContent
		if i > baseline.RequestsPerHour {
			want = stdhttp.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("request %d = %d, want %d", i, rec.Code, want)
		}
	}
}
