// Package api composes the HTTP API from its feature modules
package api

import (
	"time"

	"swiftconcur/internal/modkit"
	"swiftconcur/internal/modkit/httpkit"
	"swiftconcur/internal/modkit/swaggerkit"
	"swiftconcur/internal/platform/async"
	"swiftconcur/internal/platform/config"
	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/metrics"
	phttp "swiftconcur/internal/platform/net/http"
	"swiftconcur/internal/platform/store"

	accessmod "swiftconcur/internal/services/api/access/module"
	ingestmod "swiftconcur/internal/services/api/ingest/module"
	livemod "swiftconcur/internal/services/api/live/module"
	"swiftconcur/internal/services/api/live/service"
	metamod "swiftconcur/internal/services/api/meta/module"
	enrichmod "swiftconcur/internal/services/enrich/module"

	"github.com/prometheus/client_golang/prometheus"
)

// Options are the API options
type Options struct {
	Config config.Conf
	Store  *store.Store
	// Bg runs post-response work; nil runs it inline
	Bg             async.Runner
	Stack          httpkit.StackOptions
	RequestTimeout time.Duration
	// MaxInFlight caps concurrent request-scoped calls; websockets are not counted
	MaxInFlight    int
	EnableSwagger  bool
	EnableProfiler bool
	EnableMetrics  bool
}

// Mounted is what the caller shuts down after the server stops
type Mounted struct {
	Hub *service.Hub
}

// Mount mounts the API onto r. Call it before any other route is registered
func Mount(r phttp.Router, opt Options) Mounted {
	log := logger.Named("api")
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 30 * time.Second
	}
	deps := modkit.DepsFrom(opt.Store, opt.Config, opt.Bg)

	// access owns auth, plan lookup and the rate limit guard
	access := accessmod.New(deps)
	ap := modkit.MustPortsOf[accessmod.Ports](access)

	// enrich owns the job queue; the API only enqueues
	enrich := enrichmod.New(deps)
	ep := modkit.MustPortsOf[enrichmod.Ports](enrich)

	live := livemod.New(deps, modkit.WithPorts(livemod.Wiring{Auth: ap.Auth, Guard: ap.Guard}))
	lp := modkit.MustPortsOf[livemod.Ports](live)

	ingest := ingestmod.New(deps, modkit.WithPorts(ingestmod.Wiring{
		Auth:     ap.Auth,
		Guard:    ap.Guard,
		Notifier: lp.Notifier,
		Enqueuer: ep.Enqueuer,
	}))

	var checks map[string]store.Pinger
	if opt.Store != nil {
		checks = opt.Store.Checks()
	}
	meta := metamod.New(deps, modkit.WithPorts(metamod.Options{ServiceName: "swiftconcur-api", Checks: checks}))

	// request scoped modules get the timeout; the websocket route must not
	bounded := []modkit.Module{meta, access, ingest, enrich}

	r.Use(httpkit.CommonStack(opt.Stack)...)
	httpkit.MountAPIV1(r, nil, func(api httpkit.Router) {
		api.Group(func(g httpkit.Router) {
			g.Use(httpkit.Timeout(opt.RequestTimeout))
			if opt.MaxInFlight > 0 {
				g.Use(httpkit.Throttle(opt.MaxInFlight))
			}
			for _, m := range bounded {
				m.MountRoutes(g)
				log.Debug().Str("module", m.Name()).Msg("module mounted")
			}
		})
		live.MountRoutes(api)
	})
	live.MountInternal(r)

	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	if opt.EnableMetrics {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			log.Error().Err(err).Msg("metrics registration failed")
		}
		r.Handle("/metrics", metrics.Handler())
	}

	return Mounted{Hub: lp.Hub}
}
