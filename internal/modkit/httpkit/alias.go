// Package httpkit is the HTTP surface modules use; it re-exports the platform
// router and responders so modules never import net/http/chi wiring directly
package httpkit

import (
	"net/http"

	phttp "swiftconcur/internal/platform/net/http"
)

type (
	// Router is the platform router seam
	Router = phttp.Router
	// Handler is the handler shape routes take
	Handler = phttp.Handler
	// Response is what return-style handlers produce
	Response = phttp.Response
	// Envelope is the response envelope
	Envelope = phttp.Envelope
)

// OK returns an enveloped 200
func OK(data any) Response { return phttp.OK(data) }

// Accepted returns an unenveloped 202
func Accepted(body any) Response { return phttp.Accepted(body) }

// Raw returns an unenveloped body with status
func Raw(status int, body any) Response { return phttp.Raw(status, body) }

// NoContent returns a 204
func NoContent() Response { return phttp.NoContent() }

// Error renders err with its mapped status
func Error(err error) Response { return phttp.Error(err) }

// Handle adapts a return-style handler
func Handle(fn func(*http.Request) Response) Handler { return phttp.Handle(fn) }

// Call adapts a handler with no request body; a returned Response is written as is
func Call(fn func(*http.Request) (any, error)) Handler { return phttp.Call(fn) }

// URLParam returns a path parameter
func URLParam(r *http.Request, name string) string { return phttp.URLParam(r, name) }
