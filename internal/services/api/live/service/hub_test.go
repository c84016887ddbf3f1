package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"swiftconcur/internal/platform/testkit"
	"swiftconcur/internal/services/api/live/domain"

	"github.com/google/uuid"
)

type fakeConn struct {
	id      string
	mu      sync.Mutex
	frames  []json.RawMessage
	failing atomic.Bool
	closed  atomic.Bool
}

func newConn() *fakeConn { return &fakeConn{id: uuid.NewString()} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(_ context.Context, v any) error {
	if c.failing.Load() {
		return errors.New("broken pipe")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, b)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Closed() bool { return c.closed.Load() }
func (c *fakeConn) Close(string) { c.closed.Store(true) }

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var m struct{ Type string }
		_ = json.Unmarshal(f, &m)
		out = append(out, m.Type)
	}
	return out
}

func (c *fakeConn) frame(i int, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = json.Unmarshal(c.frames[i], v)
}

func newHub(t *testing.T, o Options) *Hub {
	t.Helper()
	h := NewHub(o)
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return h
}

func event(n int) domain.Event {
	return domain.Event{Type: domain.EventNewRun, RunID: uuid.NewString(), WarningCount: n}
}

func TestRingEvictsOldestFirst(t *testing.T) {
	t.Parallel()
	r := newRing(domain.BufferSize)
	for i := range 120 {
		r.push(entry{ev: event(i)})
		if r.len() > domain.BufferSize {
			t.Fatalf("buffer grew to %d", r.len())
		}
	}
	all := r.last(domain.BufferSize)
	if len(all) != domain.BufferSize {
		t.Fatalf("len = %d", len(all))
	}
	for i, ev := range all {
		if ev.WarningCount != 70+i {
			t.Fatalf("slot %d = %d, want %d", i, ev.WarningCount, 70+i)
		}
	}
	if got := r.last(3); got[0].WarningCount != 117 || got[2].WarningCount != 119 {
		t.Fatalf("last(3) = %+v", got)
	}
}

func TestRingDropBefore(t *testing.T) {
	t.Parallel()
	base := time.Unix(1_700_000_000, 0)
	r := newRing(4)
	for i := range 4 {
		r.push(entry{ev: event(i), at: base.Add(time.Duration(i) * time.Hour)})
	}
	if n := r.dropBefore(base.Add(2 * time.Hour)); n != 2 {
		t.Fatalf("dropped %d", n)
	}
	if got := r.last(10); len(got) != 2 || got[0].WarningCount != 2 {
		t.Fatalf("rest = %+v", got)
	}
}

func TestConnectGreetsAndReplaysLastTen(t *testing.T) {
	t.Parallel()
	h := newHub(t, Options{})
	ctx := context.Background()
	for i := range 15 {
		if _, err := h.Notify(ctx, "r1", event(i)); err != nil {
			t.Fatal(err)
		}
	}

	c := newConn()
	if err := h.Connect(ctx, "r1", c); err != nil {
		t.Fatal(err)
	}
	types := c.types()
	if len(types) != 2 || types[0] != domain.TypeConnected || types[1] != domain.TypeActivityHistory {
		t.Fatalf("frames = %v", types)
	}
	var hist domain.ActivityData
	c.frame(1, &hist)
	if len(hist.Data) != domain.ReplaySize || hist.Data[0].WarningCount != 5 {
		t.Fatalf("history = %+v", hist.Data)
	}
}

func TestConnectWithoutActivitySendsOnlyGreeting(t *testing.T) {
	t.Parallel()
	h := newHub(t, Options{})
	c := newConn()
	if err := h.Connect(context.Background(), "empty", c); err != nil {
		t.Fatal(err)
	}
	if types := c.types(); len(types) != 1 || types[0] != domain.TypeConnected {
		t.Fatalf("frames = %v", types)
	}
}

func TestNotifyBroadcastsAndDropsFailingConnections(t *testing.T) {
	t.Parallel()
	h := newHub(t, Options{})
	ctx := context.Background()
	good, bad := newConn(), newConn()
	_ = h.Connect(ctx, "r1", good)
	_ = h.Connect(ctx, "r1", bad)
	bad.failing.Store(true)

	n, err := h.Notify(ctx, "r1", event(3))
	if err != nil || n != 1 {
		t.Fatalf("notified = %d, %v", n, err)
	}
	if !bad.Closed() {
		t.Fatal("failing connection not closed")
	}
	st, _ := h.Stats(ctx, "r1")
	if st.Connections != 1 || st.Buffered != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if types := good.types(); types[len(types)-1] != string(domain.EventNewRun) {
		t.Fatalf("good frames = %v", types)
	}
}

func TestNotifyRejectsUnknownEvent(t *testing.T) {
	t.Parallel()
	h := newHub(t, Options{})
	_, err := h.Notify(context.Background(), "r1", domain.Event{Type: "deleted"})
	if !errors.Is(err, domain.ErrUnknownEvent) {
		t.Fatalf("err = %v", err)
	}
}

func TestActorsAreIsolatedPerRepository(t *testing.T) {
	t.Parallel()
	h := newHub(t, Options{})
	ctx := context.Background()
	a, b := newConn(), newConn()
	_ = h.Connect(ctx, "r1", a)
	_ = h.Connect(ctx, "r2", b)

	if n, _ := h.Notify(ctx, "r1", event(1)); n != 1 {
		t.Fatalf("notified %d", n)
	}
	if len(b.types()) != 1 {
		t.Fatalf("r2 connection saw r1 activity: %v", b.types())
	}
	if h.Actors() != 2 {
		t.Fatalf("actors = %d", h.Actors())
	}
}

func TestClientProtocol(t *testing.T) {
	t.Parallel()
	h := newHub(t, Options{})
	ctx := context.Background()
	for i := range 60 {
		_, _ = h.Notify(ctx, "r1", event(i))
	}

	cases := []struct {
		name string
		in   string
		want string
		n    int
	}{
		{"ping", `{"type":"ping"}`, domain.TypePong, -1},
		{"subscribe all", `{"type":"subscribe"}`, domain.TypeSubscribed, -1},
		{"subscribe unknown", `{"type":"subscribe","events":["nope"]}`, domain.TypeError, -1},
		{"activity default", `{"type":"get_activity"}`, domain.TypeActivity, 10},
		{"activity capped", `{"type":"get_activity","limit":500}`, domain.TypeActivity, 50},
		{"activity small", `{"type":"get_activity","limit":2}`, domain.TypeActivity, 2},
		{"unknown type", `{"type":"dance"}`, domain.TypeError, -1},
		{"malformed", `{"type":`, domain.TypeError, -1},
	}
	for _, tc := range cases {
		c := newConn()
		if err := h.Connect(ctx, "r1", c); err != nil {
			t.Fatal(err)
		}
		if err := h.Handle(ctx, "r1", c.ID(), []byte(tc.in)); err != nil {
			t.Fatal(err)
		}
		// a stats round trip orders us after the client message
		_, _ = h.Stats(ctx, "r1")

		types := c.types()
		got := types[len(types)-1]
		if got != tc.want {
			t.Errorf("%s: reply %q, want %q", tc.name, got, tc.want)
			continue
		}
		if tc.n >= 0 {
			var d domain.ActivityData
			c.frame(len(types)-1, &d)
			if len(d.Data) != tc.n {
				t.Errorf("%s: %d events, want %d", tc.name, len(d.Data), tc.n)
			}
		}
		if c.Closed() {
			t.Errorf("%s: connection closed", tc.name)
		}
	}
}

func TestSubscriptionFiltersBroadcast(t *testing.T) {
	t.Parallel()
	h := newHub(t, Options{})
	ctx := context.Background()
	c := newConn()
	_ = h.Connect(ctx, "r1", c)
	_ = h.Handle(ctx, "r1", c.ID(), []byte(`{"type":"subscribe","events":["new_run"]}`))
	if n, _ := h.Notify(ctx, "r1", event(1)); n != 1 {
		t.Fatalf("subscribed connection missed event")
	}
}

func TestCollectPurgesOldActivityAndClosedConnections(t *testing.T) {
	t.Parallel()
	var now atomic.Int64
	now.Store(time.Unix(1_700_000_000, 0).UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	a := newActor("r1", Options{Now: clock}.withDefaults())
	a.notify(context.Background(), event(1))
	live, dead := newConn(), newConn()
	a.connect(context.Background(), live)
	a.connect(context.Background(), dead)
	dead.Close("gone")

	now.Add(int64(25 * time.Hour))
	a.notify(context.Background(), event(2))
	a.collect()

	if a.buf.len() != 1 || a.buf.last(1)[0].WarningCount != 2 {
		t.Fatalf("buffer = %+v", a.buf.last(10))
	}
	if len(a.conns) != 1 {
		t.Fatalf("conns = %d", len(a.conns))
	}
	for _, m := range a.conns {
		if m.conn.Closed() {
			t.Fatal("closed connection survived collection")
		}
	}
}

func TestCollectKeepsRunningAfterPanic(t *testing.T) {
	var calls atomic.Int32
	testkit.Swap(t, &beforeCollect, func(string) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	})
	h := newHub(t, Options{GCEvery: 5 * time.Millisecond})
	if _, err := h.Stats(context.Background(), "r1"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("collection stopped after %d runs", calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := h.Stats(context.Background(), "r1"); err != nil {
		t.Fatalf("actor died: %v", err)
	}
}

func TestClosedHubRejects(t *testing.T) {
	t.Parallel()
	h := NewHub(Options{})
	c := newConn()
	_ = h.Connect(context.Background(), "r1", c)
	if err := h.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !c.Closed() {
		t.Fatal("connections must close with the hub")
	}
	if _, err := h.Notify(context.Background(), "r1", event(1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v", err)
	}
}

// panicConn panics on every Send after the first
type panicConn struct {
	fakeConn
	sends atomic.Int32
}

func (c *panicConn) Send(ctx context.Context, v any) error {
	if c.sends.Add(1) > 1 {
		panic("encoder exploded")
	}
	return c.fakeConn.Send(ctx, v)
}

func TestPanickingSendAnswersTheCaller(t *testing.T) {
	t.Parallel()
	h := newHub(t, Options{})
	c := &panicConn{fakeConn: fakeConn{id: uuid.NewString()}}
	if err := h.Connect(context.Background(), "repo-1", c); err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	_, err := h.Notify(ctx, "repo-1", event(1))
	if !errors.Is(err, ErrActorFailed) {
		t.Fatalf("notify err = %v", err)
	}
	if waited := time.Since(start); waited > time.Second {
		t.Fatalf("notify waited %v for a failed actor", waited)
	}

	// the actor keeps serving after the panic
	if _, err := h.Stats(context.Background(), "repo-1"); err != nil {
		t.Fatalf("stats after panic: %v", err)
	}
}
