package httpkit

import (
	"net/http"

	"swiftconcur/internal/modkit/swaggerkit"
	"swiftconcur/internal/platform/net/middleware"
)

// Protected groups routes behind repository auth, then mw in order.
// Routes registered through it are marked bearer-secured in the served docs
func Protected(r Router, base string, p middleware.AuthPort, mw []func(http.Handler) http.Handler, fn func(Router)) {
	r.Group(func(g Router) {
		g.Use(Auth(p))
		if len(mw) > 0 {
			g.Use(mw...)
		}
		fn(&securedRouter{Router: g, base: base})
	})
}

type securedRouter struct {
	Router
	base string
}

func (s *securedRouter) Get(path string, h Handler) {
	swaggerkit.MarkSecure(s.base+path, http.MethodGet)
	s.Router.Get(path, h)
}

func (s *securedRouter) Post(path string, h Handler) {
	swaggerkit.MarkSecure(s.base+path, http.MethodPost)
	s.Router.Post(path, h)
}

func (s *securedRouter) Delete(path string, h Handler) {
	swaggerkit.MarkSecure(s.base+path, http.MethodDelete)
	s.Router.Delete(path, h)
}

func (s *securedRouter) Route(prefix string, fn func(Router)) {
	s.Router.Route(prefix, func(sub Router) {
		fn(&securedRouter{Router: sub, base: s.base + prefix})
	})
}

func (s *securedRouter) Group(fn func(Router)) {
	s.Router.Group(func(sub Router) {
		fn(&securedRouter{Router: sub, base: s.base})
	})
}
