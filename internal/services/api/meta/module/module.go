// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"net/http"
	"time"

	"swiftconcur/internal/modkit"
	"swiftconcur/internal/modkit/httpkit"
	metahttp "swiftconcur/internal/services/api/meta/http"
)

// Options carries what meta reports on
type Options struct {
	ServiceName string
	Checks      map[string]metahttp.Pinger
}

// Module implements the modkit.Module interface
type Module struct {
	name      string
	prefix    string
	mws       []func(http.Handler) http.Handler
	opts      Options
	startedAt time.Time
}

// New constructs a meta module; inject Options with modkit.WithPorts
func New(_ modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build("meta", "/meta", opts...)
	o, _ := modkit.PortsAs[Options](b)
	if o.ServiceName == "" {
		o.ServiceName = "swiftconcur-api"
	}
	return &Module{name: b.Name, prefix: b.Prefix, mws: b.Mw, opts: o, startedAt: time.Now()}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, func(rr httpkit.Router) {
		metahttp.Register(rr, metahttp.Deps{
			ServiceName: m.opts.ServiceName,
			StartedAt:   m.startedAt,
			Checks:      m.opts.Checks,
		})
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.name }
