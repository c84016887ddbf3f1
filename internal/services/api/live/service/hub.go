// Package service runs one notification actor per repository. The hub only
// routes messages; all per-repository state lives inside the actor goroutine
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"swiftconcur/internal/services/api/live/domain"
)

// ErrClosed is returned once the hub has shut down
var ErrClosed = errors.New("live: hub closed")

// ErrActorFailed is returned when the actor panicked while serving the call
var ErrActorFailed = errors.New("live: actor failed")

// Options tunes actors
type Options struct {
	// GCEvery is the collection interval, first armed when the actor starts
	GCEvery time.Duration
	// MaxAge is how long activity stays buffered
	MaxAge time.Duration
	// SendTimeout bounds one write to one connection
	SendTimeout time.Duration
	// Mailbox is the per-actor queue depth
	Mailbox int
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.GCEvery <= 0 {
		o.GCEvery = time.Hour
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 24 * time.Hour
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 5 * time.Second
	}
	if o.Mailbox <= 0 {
		o.Mailbox = 64
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Hub addresses actors by repository id
type Hub struct {
	opts Options

	mu     sync.Mutex
	actors map[string]*actor
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub returns a hub with no actors; they start on first use
func NewHub(opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{opts: opts.withDefaults(), actors: map[string]*actor{}, ctx: ctx, cancel: cancel}
}

func (h *Hub) actor(repoID string) (*actor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if a, ok := h.actors[repoID]; ok {
		return a, nil
	}
	a := newActor(repoID, h.opts)
	h.actors[repoID] = a
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		a.run(h.ctx)
	}()
	return a, nil
}

func (h *Hub) post(ctx context.Context, repoID string, m message) (*actor, error) {
	a, err := h.actor(repoID)
	if err != nil {
		return nil, err
	}
	select {
	case a.inbox <- m:
		return a, nil
	case <-a.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func await[T any](ctx context.Context, a *actor, reply <-chan result[T]) (T, error) {
	var zero T
	select {
	case r := <-reply:
		return r.v, r.err
	case <-a.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Connect registers c and returns once the greeting and replay were sent
func (h *Hub) Connect(ctx context.Context, repoID string, c domain.Conn) error {
	reply := make(chan result[struct{}], 1)
	a, err := h.post(ctx, repoID, connectMsg{conn: c, reply: reply})
	if err != nil {
		return err
	}
	_, err = await(ctx, a, reply)
	return err
}

// Notify records ev and broadcasts it, returning how many connections got it
func (h *Hub) Notify(ctx context.Context, repoID string, ev domain.Event) (int, error) {
	if !ev.Type.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, ev.Type)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = h.opts.Now().UTC()
	}
	reply := make(chan result[int], 1)
	a, err := h.post(ctx, repoID, notifyMsg{ev: ev, reply: reply})
	if err != nil {
		return 0, err
	}
	return await(ctx, a, reply)
}

// Handle queues a raw client frame; the reply goes back over the connection
func (h *Hub) Handle(ctx context.Context, repoID, connID string, raw []byte) error {
	_, err := h.post(ctx, repoID, clientMsg{connID: connID, raw: append([]byte(nil), raw...)})
	return err
}

// Disconnect removes a connection
func (h *Hub) Disconnect(ctx context.Context, repoID, connID string) error {
	_, err := h.post(ctx, repoID, disconnectMsg{connID: connID})
	return err
}

// Activity returns up to limit recent events, oldest first
func (h *Hub) Activity(ctx context.Context, repoID string, limit int) ([]domain.Event, error) {
	reply := make(chan result[[]domain.Event], 1)
	a, err := h.post(ctx, repoID, activityMsg{limit: domain.ClampLimit(&limit), reply: reply})
	if err != nil {
		return nil, err
	}
	return await(ctx, a, reply)
}

// Stats reports one actor's size
func (h *Hub) Stats(ctx context.Context, repoID string) (domain.Stats, error) {
	reply := make(chan result[domain.Stats], 1)
	a, err := h.post(ctx, repoID, statsMsg{reply: reply})
	if err != nil {
		return domain.Stats{}, err
	}
	return await(ctx, a, reply)
}

// Actors is the number of started actors
func (h *Hub) Actors() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.actors)
}

// Close stops every actor, closing their connections, and waits until ctx ends
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
