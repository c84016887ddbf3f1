package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"swiftconcur/internal/platform/config"
)

func TestServerRouterRoutes(t *testing.T) {
	t.Parallel()
	srv := NewServer(config.New().Prefix("ROUTER_TEST_"))
	if srv.Addr() != ":8080" {
		t.Fatalf("addr got %q", srv.Addr())
	}
	var hits int
	srv.Router().Route("/api", func(r Router) {
		r.Use(func(next stdhttp.Handler) stdhttp.Handler {
			return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
				hits++
				next.ServeHTTP(w, req)
			})
		})
		r.Get("/runs/{id}", Call(func(req *stdhttp.Request) (any, error) {
			return URLParam(req, "id"), nil
		}))
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/api/runs/abc", nil))
	if rec.Code != stdhttp.StatusOK || hits != 1 {
		t.Fatalf("got %d hits=%d body=%s", rec.Code, hits, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodPost, "/api/runs/abc", nil))
	if rec.Code != stdhttp.StatusMethodNotAllowed {
		t.Fatalf("post got %d want 405", rec.Code)
	}
}
