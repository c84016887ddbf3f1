// Package module wires token auth, plan lookup and rate limiting into the API
package module

import (
	"fmt"
	"net/http"
	"time"

	"swiftconcur/internal/core/ratelimit"
	"swiftconcur/internal/core/tier"
	"swiftconcur/internal/modkit"
	"swiftconcur/internal/modkit/httpkit"
	"swiftconcur/internal/platform/config"
	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/net/middleware"

	"swiftconcur/internal/services/api/access/domain"
	ahttp "swiftconcur/internal/services/api/access/http"
	arepo "swiftconcur/internal/services/api/access/repo"
	asvc "swiftconcur/internal/services/api/access/service"
)

// Options configures access
type Options struct {
	TiersFile    string
	LimitTimeout time.Duration
}

// FromConfig reads CORE_API_ values
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_API_")
	return Options{
		TiersFile:    c.MayString("TIERS_FILE", ""),
		LimitTimeout: c.MayDuration("RATE_LIMIT_TIMEOUT", 250*time.Millisecond),
	}
}

// Ports is what sibling modules consume
type Ports struct {
	Auth  domain.AuthPort
	Tiers domain.TierPort
	// Guard resolves the plan then applies the hourly rate limit; mount it after Auth
	Guard []func(http.Handler) http.Handler
}

// Module implements the access API module
type Module struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler
	ports  Ports
}

// New constructs the module; a nil Redis client falls back to process-local counters
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build("access", "", opts...)
	o := FromConfig(deps.Cfg)

	catalog, err := tier.Load(o.TiersFile)
	if err != nil {
		panic(fmt.Sprintf("access: %v", err))
	}

	var counter ratelimit.Counter
	if deps.RDS != nil {
		counter = ratelimit.NewRedisCounter(deps.RDS)
	} else {
		logger.Named("access").Warn().Msg("redis disabled, rate limit counters are process local")
		counter = ratelimit.NewMemoryCounter()
	}
	limiter := ratelimit.New(counter, deps.Runner(), ratelimit.WithTimeout(o.LimitTimeout))

	svc := asvc.New(deps.PG, arepo.NewPG(), catalog)
	return &Module{
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		ports: Ports{
			Auth:  svc,
			Tiers: svc,
			Guard: []func(http.Handler) http.Handler{
				middleware.ClientIdentity,
				ahttp.RequireTier(svc),
				ahttp.RateLimit(limiter),
			},
		},
	}
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the access ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts /limits behind auth and the guard
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, func(rr httpkit.Router) {
		httpkit.Protected(rr, "/api/v1"+m.prefix, m.ports.Auth, m.ports.Guard, ahttp.Register)
	})
}
