package modkit

import "net/http"

// Built is the resolved option set a module reads at construction
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any
}

// Build applies opts over the module's defaults
func Build(defName, defPrefix string, opts ...Option) Built {
	c := buildCfg{name: defName, prefix: defPrefix}
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	return Built{
		Name:   c.name,
		Prefix: c.prefix,
		Mw:     append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:  c.ports,
	}
}

// PortsAs returns the injected ports as T
func PortsAs[T any](b Built) (T, bool) {
	v, ok := b.Ports.(T)
	return v, ok
}
