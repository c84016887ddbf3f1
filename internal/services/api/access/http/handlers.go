package http

import (
	stdhttp "net/http"

	"swiftconcur/internal/modkit/httpkit"
	perr "swiftconcur/internal/platform/errors"
	pnet "swiftconcur/internal/platform/net"
	"swiftconcur/internal/services/api/access/domain"
)

// Register mounts the access endpoints
func Register(r httpkit.Router) {
	httpkit.Get(r, "/limits", limits)
}

// limits reports the caller's plan
// @Summary Current plan limits
// @Tags access
// @Produce json
// @Security bearerAuth
// @Success 200 {object} domain.Limits
// @Router /api/v1/limits [get]
func limits(r *stdhttp.Request) (any, error) {
	t, ok := domain.TierFrom(r.Context())
	if !ok {
		return nil, perr.Internalf("tier not resolved")
	}
	return domain.Limits{RepoID: pnet.RepoID(r.Context()), Tier: t}, nil
}
