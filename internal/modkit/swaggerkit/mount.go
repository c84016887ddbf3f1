// Package swaggerkit serves the OpenAPI document and Swagger UI
package swaggerkit

import (
	"net/http"
	"strings"
	"sync"

	phttp "swiftconcur/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	secureMu sync.RWMutex
	secure   = map[string]map[string]struct{}{}
)

// MarkSecure records that method path requires a bearer token
func MarkSecure(path, method string) {
	secureMu.Lock()
	defer secureMu.Unlock()
	m, ok := secure[path]
	if !ok {
		m = map[string]struct{}{}
		secure[path] = m
	}
	m[strings.ToLower(method)] = struct{}{}
}

func isSecure(path, method string) bool {
	secureMu.RLock()
	defer secureMu.RUnlock()
	_, ok := secure[path][strings.ToLower(method)]
	return ok
}

// Mount serves the UI under /api/docs when enabled
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDocJSON())
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}
