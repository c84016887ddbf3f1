package service

import (
	"time"

	"swiftconcur/internal/services/api/live/domain"
)

type entry struct {
	ev domain.Event
	at time.Time
}

// ring is a fixed-capacity FIFO; pushing past capacity evicts the oldest entry
type ring struct {
	buf  []entry
	head int // index of the oldest entry
	n    int
}

func newRing(size int) *ring { return &ring{buf: make([]entry, size)} }

func (r *ring) len() int { return r.n }

func (r *ring) push(e entry) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = e
		r.n++
		return
	}
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
}

// last returns up to k most recent events, oldest first
func (r *ring) last(k int) []domain.Event {
	k = min(max(k, 0), r.n)
	out := make([]domain.Event, 0, k)
	for i := r.n - k; i < r.n; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)].ev)
	}
	return out
}

// dropBefore evicts entries recorded before cutoff and reports how many went
func (r *ring) dropBefore(cutoff time.Time) int {
	dropped := 0
	for r.n > 0 && r.buf[r.head].at.Before(cutoff) {
		r.buf[r.head] = entry{}
		r.head = (r.head + 1) % len(r.buf)
		r.n--
		dropped++
	}
	return dropped
}
