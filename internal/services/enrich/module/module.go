// Package module exposes the enrichment queue to the API (producer) and the worker binary (consumer)
package module

import (
	"time"

	"swiftconcur/internal/modkit"
	"swiftconcur/internal/modkit/httpkit"
	"swiftconcur/internal/platform/config"
	"swiftconcur/internal/services/enrich/domain"
	"swiftconcur/internal/services/enrich/repo"
	"swiftconcur/internal/services/enrich/service"

	"golang.org/x/text/language"
)

// FromConfig reads ENRICH_ values
func FromConfig(cfg config.Conf) service.Config {
	c := cfg.Prefix("ENRICH_")
	return service.Config{
		WorkerID:    c.MayString("WORKER_ID", ""),
		Concurrency: c.MayInt("CONCURRENCY", 4),
		Batch:       c.MayInt("BATCH", 16),
		MaxAttempts: c.MayInt("MAX_ATTEMPTS", domain.DefaultMaxAttempts),
		LeaseFor:    c.MayDuration("LEASE", 2*time.Minute),
		Poll:        c.MayDuration("POLL", time.Second),
		RetryBase:   c.MayDuration("RETRY_BASE", 5*time.Second),
		RetryMax:    c.MayDuration("RETRY_MAX", 5*time.Minute),
	}
}

// Ports is what the API and the worker binary consume
type Ports struct {
	Enqueuer domain.EnqueuePort
	Worker   domain.WorkerPort
}

// Module has no routes; it only carries ports
type Module struct {
	name  string
	ports Ports
}

// New constructs the module; the ClickHouse mirror is enabled when deps.CH is set
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build("enrich", "", opts...)

	var sink domain.FactSink
	if deps.CH != nil {
		sink = repo.NewCHSink(deps.CH)
	}
	svc := service.New(deps.PG, repo.NewPG(), service.SummaryEnricher{Lang: language.English}, sink, FromConfig(deps.Cfg))
	return &Module{name: b.Name, ports: Ports{Enqueuer: svc, Worker: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the queue ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op
func (m *Module) MountRoutes(httpkit.Router) {}
