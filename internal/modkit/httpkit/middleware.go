package httpkit

import (
	"net/http"
	"time"

	"swiftconcur/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	CORS middleware.CORSOptions
	// SlowRequest logs at warn above this latency
	SlowRequest time.Duration
	// Heartbeat answers GET on this path before routing; empty disables it
	Heartbeat string
}

// CommonStack is the root middleware every request passes through
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{}
	if o.Heartbeat != "" {
		mws = append(mws, middleware.Heartbeat(o.Heartbeat))
	}
	return append(mws,
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.RecoverJSON,
		middleware.AccessLog(middleware.AccessLogOptions{Slow: o.SlowRequest}),
		middleware.CORS(o.CORS),
		middleware.NoCache(),
	)
}

// Timeout bounds request handling; keep it off long-lived connections
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return middleware.Timeout(d)
}

// Throttle caps in-flight requests at limit; keep it off long-lived connections
func Throttle(limit int) func(http.Handler) http.Handler { return middleware.Throttle(limit) }

// Auth wires the repository auth port
func Auth(p middleware.AuthPort) func(http.Handler) http.Handler { return middleware.Auth(p) }
