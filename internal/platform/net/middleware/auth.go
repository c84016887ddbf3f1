package middleware

import (
	"net"
	"net/http"
	"strings"

	"swiftconcur/internal/platform/logger"
	pnet "swiftconcur/internal/platform/net"
	phttp "swiftconcur/internal/platform/net/http"
)

// AuthPort resolves the repository a request is acting for
type AuthPort interface {
	Authenticate(r *http.Request) (repoID string, err error)
}

// AuthFunc adapts a function to AuthPort
type AuthFunc func(r *http.Request) (string, error)

// Authenticate implements AuthPort
func (f AuthFunc) Authenticate(r *http.Request) (string, error) { return f(r) }

// Auth rejects requests the port cannot authenticate and stores the repository on the context
func Auth(p AuthPort) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			repoID, err := p.Authenticate(r)
			if err != nil {
				phttp.RespondError(w, r, err)
				return
			}
			ctx := pnet.WithRepo(r.Context(), repoID)
			ctx = logger.WithRequest(ctx, pnet.RequestID(ctx), repoID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIdentity stores the rate limit identity, the remote IP as resolved by RealIP.
// Caller supplied headers never feed it, so rotating them cannot mint fresh counters
func ClientIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			id = host
		}
		next.ServeHTTP(w, r.WithContext(pnet.WithClient(r.Context(), id)))
	})
}

// BearerToken extracts the token from Authorization, falling back to the access_token query
// parameter for websocket clients that cannot set headers
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}
