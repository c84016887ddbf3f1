// Package module wires report ingestion and run queries into the API
package module

import (
	"net/http"

	"swiftconcur/internal/modkit"
	"swiftconcur/internal/modkit/httpkit"
	"swiftconcur/internal/platform/config"
	"swiftconcur/internal/platform/net/middleware"
	"swiftconcur/internal/services/api/ingest/domain"
	ingesthttp "swiftconcur/internal/services/api/ingest/http"
	"swiftconcur/internal/services/api/ingest/repo"
	"swiftconcur/internal/services/api/ingest/service"
	livedomain "swiftconcur/internal/services/api/live/domain"
	enrichdomain "swiftconcur/internal/services/enrich/domain"
)

// FromConfig reads CORE_API_ values
func FromConfig(cfg config.Conf) service.Config {
	c := cfg.Prefix("CORE_API_")
	return service.Config{MaxBytes: int64(c.MayInt("MAX_REPORT_BYTES", domain.DefaultMaxBytes))}
}

// Wiring is injected with modkit.WithPorts: the ports ingestion borrows from other modules
type Wiring struct {
	Auth     middleware.AuthPort
	Guard    []func(http.Handler) http.Handler
	Notifier livedomain.NotifyPort
	Enqueuer enrichdomain.EnqueuePort
}

// Module implements the ingest API module
type Module struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler
	wiring Wiring
	svc    *service.Svc
}

// New constructs the module; it panics without an injected Auth port
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build("ingest", "", opts...)
	w, ok := modkit.PortsAs[Wiring](b)
	if !ok || w.Auth == nil {
		panic("ingest: module requires Wiring with an Auth port")
	}
	svc := service.New(deps.PG, repo.NewPG(), deps.Blob, w.Enqueuer, w.Notifier, deps.Runner(), FromConfig(deps.Cfg))
	return &Module{name: b.Name, prefix: b.Prefix, mws: b.Mw, wiring: w, svc: svc}
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the ingestion service
func (m *Module) Ports() any { return domain.ServicePort(m.svc) }

// MountRoutes mounts /reports and /runs behind auth, plan lookup and the rate limit
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, func(rr httpkit.Router) {
		httpkit.Protected(rr, "/api/v1"+m.prefix, m.wiring.Auth, m.wiring.Guard, func(pr httpkit.Router) {
			ingesthttp.Register(pr, m.svc)
		})
	})
}
