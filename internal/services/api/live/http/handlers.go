// Package http is the live transport: websocket connections for dashboards and
// the internal notify protocol other processes use to reach an actor
package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"swiftconcur/internal/modkit/httpkit"
	perr "swiftconcur/internal/platform/errors"
	"swiftconcur/internal/platform/logger"
	pnet "swiftconcur/internal/platform/net"
	phttp "swiftconcur/internal/platform/net/http"
	"swiftconcur/internal/services/api/live/domain"

	"github.com/coder/websocket"
)

// InternalTokenHeader carries the shared secret on internal routes
const InternalTokenHeader = "X-Internal-Token"

// maxClientFrame bounds one client message
const maxClientFrame = 4 << 10

// Hub is what the transport needs from the actor hub
type Hub interface {
	Connect(ctx context.Context, repoID string, c domain.Conn) error
	Handle(ctx context.Context, repoID, connID string, raw []byte) error
	Disconnect(ctx context.Context, repoID, connID string) error
	domain.NotifyPort
	domain.ActivityPort
}

type handlers struct {
	hub     Hub
	origins []string
}

// RegisterLive mounts the websocket endpoint; the router must already authenticate
func RegisterLive(r httpkit.Router, hub Hub, origins []string) {
	h := &handlers{hub: hub, origins: origins}
	r.Get("/repos/{repoID}/live", h.live)
}

// RegisterInternal mounts the notify protocol behind the shared token
func RegisterInternal(r httpkit.Router, hub Hub, token string) {
	h := &handlers{hub: hub}
	r.Group(func(g httpkit.Router) {
		g.Use(InternalToken(token))
		httpkit.PostJSON(g, "/repos/{repoID}/notify", h.notify)
		g.Get("/repos/{repoID}/activity", httpkit.Handle(h.activity))
	})
}

// InternalToken rejects requests without the shared secret; an empty secret rejects everything
func InternalToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(InternalTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				phttp.RespondError(w, r, perr.Unauthorizedf("invalid internal token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// live godoc
// @Summary Live activity stream
// @Description Upgrades to a websocket. The server sends `connected`, then `activity_history` when
// @Description activity is buffered, then every new event. Clients may send ping, subscribe and get_activity.
// @Tags Live
// @Param repoID path string true "Repository id"
// @Param access_token query string false "Bearer token for clients that cannot set headers"
// @Success 101 "switching protocols"
// @Failure 403 {object} httpkit.Envelope
// @Router /repos/{repoID}/live [get]
func (h *handlers) live(w http.ResponseWriter, r *http.Request) {
	repoID := httpkit.URLParam(r, "repoID")
	if repoID != pnet.RepoID(r.Context()) {
		phttp.RespondError(w, r, perr.Forbiddenf("token does not belong to repository %s", repoID))
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		logger.C(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	c.SetReadLimit(maxClientFrame)
	conn := newWSConn(c)
	log := logger.C(r.Context()).With().Str("conn_id", conn.ID()).Logger()

	ctx := r.Context()
	if err := h.hub.Connect(ctx, repoID, conn); err != nil {
		log.Warn().Err(err).Msg("live connect failed")
		_ = c.Close(websocket.StatusTryAgainLater, "unavailable")
		return
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = h.hub.Disconnect(dctx, repoID, conn.ID())
	}()

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			conn.broken.Store(true)
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				log.Debug().Err(err).Msg("live connection ended")
			}
			return
		}
		if err := h.hub.Handle(ctx, repoID, conn.ID(), data); err != nil {
			return
		}
	}
}

// notify godoc
// @Summary Deliver an event to a repository's live connections
// @Tags Internal
// @Accept json
// @Produce json
// @Param X-Internal-Token header string true "Shared internal token"
// @Param repoID path string true "Repository id"
// @Param payload body domain.Event true "Event"
// @Success 200 {object} domain.NotifyResult
// @Failure 400 {object} httpkit.Envelope
// @Failure 401 {object} httpkit.Envelope
// @Router /internal/repos/{repoID}/notify [post]
func (h *handlers) notify(r *http.Request, ev domain.Event) (any, error) {
	n, err := h.hub.Notify(r.Context(), httpkit.URLParam(r, "repoID"), ev)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEvent) {
			return nil, perr.Validationf("unknown event type %q", ev.Type)
		}
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "notify failed")
	}
	return httpkit.Raw(http.StatusOK, domain.NotifyResult{Success: true, ConnectionsNotified: n}), nil
}

// activity godoc
// @Summary Recent activity of a repository
// @Tags Internal
// @Produce json
// @Param X-Internal-Token header string true "Shared internal token"
// @Param repoID path string true "Repository id"
// @Param limit query int false "Events to return (default 10, max 50)"
// @Success 200 {array} domain.Event
// @Failure 401 {object} httpkit.Envelope
// @Router /internal/repos/{repoID}/activity [get]
func (h *handlers) activity(r *http.Request) httpkit.Response {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return httpkit.Error(perr.Validationf("limit must be an integer"))
		}
		limit = n
	}
	events, err := h.hub.Activity(r.Context(), httpkit.URLParam(r, "repoID"), limit)
	if err != nil {
		return httpkit.Error(perr.Wrap(err, perr.ErrorCodeUnavailable, "activity unavailable"))
	}
	return httpkit.OK(events)
}
