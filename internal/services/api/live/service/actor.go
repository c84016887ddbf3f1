package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/metrics"
	"swiftconcur/internal/services/api/live/domain"
)

// message is the closed set of mailbox entries an actor accepts
type message interface{ mailbox() }

// result is what a caller waiting on the actor receives
type result[T any] struct {
	v   T
	err error
}

// replyTo delivers r without blocking; reply channels hold one value
func replyTo[T any](ch chan result[T], r result[T]) {
	select {
	case ch <- r:
	default:
	}
}

type (
	connectMsg struct {
		conn  domain.Conn
		reply chan result[struct{}]
	}
	notifyMsg struct {
		ev    domain.Event
		reply chan result[int]
	}
	clientMsg struct {
		connID string
		raw    []byte
	}
	disconnectMsg struct{ connID string }
	activityMsg   struct {
		limit int
		reply chan result[[]domain.Event]
	}
	statsMsg struct{ reply chan result[domain.Stats] }
)

func (connectMsg) mailbox()    {}
func (notifyMsg) mailbox()     {}
func (clientMsg) mailbox()     {}
func (disconnectMsg) mailbox() {}
func (activityMsg) mailbox()   {}
func (statsMsg) mailbox()      {}

// fail answers a waiting caller when handling m panicked
func fail(m message, err error) {
	switch m := m.(type) {
	case connectMsg:
		replyTo(m.reply, result[struct{}]{err: err})
	case notifyMsg:
		replyTo(m.reply, result[int]{err: err})
	case activityMsg:
		replyTo(m.reply, result[[]domain.Event]{err: err})
	case statsMsg:
		replyTo(m.reply, result[domain.Stats]{err: err})
	case clientMsg, disconnectMsg:
	}
}

// beforeCollect runs at the start of every collection; tests swap it
var beforeCollect = func(repoID string) {}

type member struct {
	conn domain.Conn
	// events is the subscription filter; nil means every kind
	events map[domain.EventKind]bool
}

func (m *member) wants(k domain.EventKind) bool { return m.events == nil || m.events[k] }

// actor owns one repository's connections and activity. Its state is only
// touched from run, so nothing in here locks
type actor struct {
	repoID string
	inbox  chan message
	done   chan struct{}
	opts   Options
	log    logger.Logger

	conns map[string]*member
	buf   *ring
}

func newActor(repoID string, opts Options) *actor {
	return &actor{
		repoID: repoID,
		inbox:  make(chan message, opts.Mailbox),
		done:   make(chan struct{}),
		opts:   opts,
		log:    logger.Named("live-actor").With().Str("repo_id", repoID).Logger(),
		conns:  map[string]*member{},
		buf:    newRing(domain.BufferSize),
	}
}

func (a *actor) run(ctx context.Context) {
	defer close(a.done)
	defer a.closeAll("server shutting down")

	gc := time.NewTimer(a.opts.GCEvery)
	defer gc.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-gc.C:
			a.collect()
			gc.Reset(a.opts.GCEvery)
		case m := <-a.inbox:
			a.handle(ctx, m)
		}
	}
}

func (a *actor) handle(ctx context.Context, m message) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msgf("actor message %T failed", m)
			fail(m, fmt.Errorf("%w: %v", ErrActorFailed, r))
		}
	}()

	switch m := m.(type) {
	case connectMsg:
		a.connect(ctx, m.conn)
		replyTo(m.reply, result[struct{}]{})
	case notifyMsg:
		replyTo(m.reply, result[int]{v: a.notify(ctx, m.ev)})
	case clientMsg:
		a.client(ctx, m.connID, m.raw)
	case disconnectMsg:
		a.drop(m.connID, "client disconnected")
	case activityMsg:
		replyTo(m.reply, result[[]domain.Event]{v: a.buf.last(m.limit)})
	case statsMsg:
		replyTo(m.reply, result[domain.Stats]{v: domain.Stats{RepoID: a.repoID, Connections: len(a.conns), Buffered: a.buf.len()}})
	default:
		a.log.Error().Msgf("unhandled actor message %T", m)
	}
}

func (a *actor) connect(ctx context.Context, c domain.Conn) {
	a.conns[c.ID()] = &member{conn: c}
	metrics.LiveConnections(1)

	if !a.send(ctx, c.ID(), domain.Stamped{Type: domain.TypeConnected, Timestamp: a.opts.Now().UTC()}) {
		return
	}
	if a.buf.len() > 0 {
		a.send(ctx, c.ID(), domain.ActivityData{Type: domain.TypeActivityHistory, Data: a.buf.last(domain.ReplaySize)})
	}
}

func (a *actor) notify(ctx context.Context, ev domain.Event) int {
	a.buf.push(entry{ev: ev, at: a.opts.Now()})

	delivered := 0
	for id, m := range a.conns {
		if !m.wants(ev.Type) {
			continue
		}
		if a.send(ctx, id, ev) {
			delivered++
		}
	}
	metrics.LiveDelivered(delivered)
	return delivered
}

func (a *actor) client(ctx context.Context, connID string, raw []byte) {
	m, ok := a.conns[connID]
	if !ok {
		return
	}
	var in domain.ClientMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		a.send(ctx, connID, domain.ErrorMessage{Type: domain.TypeError, Message: "invalid message format"})
		return
	}

	var reply any
	switch domain.ParseClientKind(in.Type) {
	case domain.ClientPing:
		reply = domain.Stamped{Type: domain.TypePong, Timestamp: a.opts.Now().UTC()}
	case domain.ClientSubscribe:
		reply = a.subscribe(m, in.Events)
	case domain.ClientGetActivity:
		reply = domain.ActivityData{Type: domain.TypeActivity, Data: a.buf.last(domain.ClampLimit(in.Limit))}
	case domain.ClientUnknown:
		reply = domain.ErrorMessage{Type: domain.TypeError, Message: fmt.Sprintf("unknown message type %q", in.Type)}
	}
	a.send(ctx, connID, reply)
}

func (a *actor) subscribe(m *member, kinds []domain.EventKind) any {
	if len(kinds) == 0 {
		m.events = nil
		return domain.Subscribed{Type: domain.TypeSubscribed, Events: domain.EventKinds}
	}
	set := make(map[domain.EventKind]bool, len(kinds))
	for _, k := range kinds {
		if !k.Valid() {
			return domain.ErrorMessage{Type: domain.TypeError, Message: fmt.Sprintf("unknown event %q", k)}
		}
		set[k] = true
	}
	m.events = set
	return domain.Subscribed{Type: domain.TypeSubscribed, Events: kinds}
}

// send writes v to one connection and drops the connection when that fails
func (a *actor) send(ctx context.Context, connID string, v any) bool {
	m, ok := a.conns[connID]
	if !ok {
		return false
	}
	if m.conn.Closed() {
		a.drop(connID, "connection closed")
		return false
	}
	sctx, cancel := context.WithTimeout(ctx, a.opts.SendTimeout)
	defer cancel()
	if err := m.conn.Send(sctx, v); err != nil {
		a.log.Debug().Err(err).Str("conn_id", connID).Msg("send failed, dropping connection")
		a.drop(connID, "send failed")
		return false
	}
	return true
}

func (a *actor) drop(connID, reason string) {
	m, ok := a.conns[connID]
	if !ok {
		return
	}
	delete(a.conns, connID)
	m.conn.Close(reason)
	metrics.LiveConnections(-1)
}

func (a *actor) closeAll(reason string) {
	for id := range a.conns {
		a.drop(id, reason)
	}
}

// collect purges stale activity and dead connections. A panic is logged and
// swallowed so the caller always reschedules
func (a *actor) collect() {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("activity collection failed")
		}
	}()
	beforeCollect(a.repoID)

	purged := a.buf.dropBefore(a.opts.Now().Add(-a.opts.MaxAge))
	swept := 0
	for id, m := range a.conns {
		if m.conn.Closed() {
			a.drop(id, "connection closed")
			swept++
		}
	}
	if purged > 0 || swept > 0 {
		a.log.Debug().Int("events_purged", purged).Int("conns_swept", swept).Msg("activity collected")
	}
}
