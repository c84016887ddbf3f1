// Package module wires the notification hub, its websocket endpoint and the
// internal notify protocol into the API
package module

import (
	"net/http"
	"time"

	"swiftconcur/internal/modkit"
	"swiftconcur/internal/modkit/httpkit"
	"swiftconcur/internal/platform/config"
	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/net/middleware"
	"swiftconcur/internal/services/api/live/client"
	"swiftconcur/internal/services/api/live/domain"
	livehttp "swiftconcur/internal/services/api/live/http"
	"swiftconcur/internal/services/api/live/service"
)

// Options configures live
type Options struct {
	InternalToken string
	// NotifyURL points the notifier at a hub in another process; empty keeps it in process
	NotifyURL     string
	NotifyTimeout time.Duration
	Origins       []string
	Hub           service.Options
}

// FromConfig reads CORE_API_ values
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_API_")
	return Options{
		InternalToken: c.MayString("INTERNAL_TOKEN", ""),
		NotifyURL:     c.MayString("NOTIFY_URL", ""),
		NotifyTimeout: c.MayDuration("NOTIFY_TIMEOUT", 5*time.Second),
		Origins:       c.MayCSV("LIVE_ORIGINS", nil),
		Hub: service.Options{
			GCEvery:     c.MayDuration("LIVE_GC_INTERVAL", time.Hour),
			MaxAge:      c.MayDuration("LIVE_MAX_AGE", 24*time.Hour),
			SendTimeout: c.MayDuration("LIVE_SEND_TIMEOUT", 5*time.Second),
			Mailbox:     c.MayInt("LIVE_MAILBOX", 64),
		},
	}
}

// Wiring is injected with modkit.WithPorts: the auth chain the live endpoint sits behind
type Wiring struct {
	Auth  middleware.AuthPort
	Guard []func(http.Handler) http.Handler
}

// Ports is what sibling modules consume
type Ports struct {
	Notifier domain.NotifyPort
	Hub      *service.Hub
}

// Module implements the live API module
type Module struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler
	opts   Options
	wiring Wiring
	hub    *service.Hub
	ports  Ports
}

// New constructs the module and its hub. Without injected Wiring the websocket route is not mounted
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build("live", "", opts...)
	w, _ := modkit.PortsAs[Wiring](b)
	o := FromConfig(deps.Cfg)

	hub := service.NewHub(o.Hub)
	var notifier domain.NotifyPort = hub
	if o.NotifyURL != "" {
		notifier = client.New(o.NotifyURL, o.InternalToken, o.NotifyTimeout)
	}
	if o.InternalToken == "" {
		logger.Named("live").Info().Msg("internal token unset, internal notify routes reject every call")
	}
	return &Module{
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		opts:   o,
		wiring: w,
		hub:    hub,
		ports:  Ports{Notifier: notifier, Hub: hub},
	}
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the live ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts the websocket endpoint
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.wiring.Auth == nil {
		return
	}
	httpkit.MountUnder(r, m.prefix, m.mws, func(rr httpkit.Router) {
		httpkit.Protected(rr, "/api/v1"+m.prefix, m.wiring.Auth, m.wiring.Guard, func(pr httpkit.Router) {
			livehttp.RegisterLive(pr, m.hub, m.opts.Origins)
		})
	})
}

// MountInternal mounts the internal notify protocol under /internal
func (m *Module) MountInternal(r httpkit.Router) {
	r.Route("/internal", func(ir httpkit.Router) {
		livehttp.RegisterInternal(ir, m.hub, m.opts.InternalToken)
	})
}
