// Package modkit wires feature modules onto the shared router and backends
package modkit

import "swiftconcur/internal/modkit/httpkit"

// Module is what the api composes; each feature owns one
type Module interface {
	// Name is used in logs and the port registry
	Name() string
	// MountRoutes attaches the module's endpoints
	MountRoutes(r httpkit.Router)
}

// PortsProvider is implemented by modules that hand typed ports to siblings
type PortsProvider interface {
	Ports() any
}

// Builder constructs a Module from shared deps
type Builder func(Deps, ...Option) Module

// PortsOf returns m's ports as T when m exposes them
func PortsOf[T any](m Module) (T, bool) {
	var zero T
	pp, ok := m.(PortsProvider)
	if !ok {
		return zero, false
	}
	v, ok := pp.Ports().(T)
	return v, ok
}

// MustPortsOf panics when m does not expose T; wiring mistakes surface at boot
func MustPortsOf[T any](m Module) T {
	v, ok := PortsOf[T](m)
	if !ok {
		var zero T
		panic("modkit: module " + m.Name() + " does not expose " + typeName(zero))
	}
	return v
}
