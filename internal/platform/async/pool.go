// Package async runs fire-and-forget work on a bounded set of workers
package async

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/metrics"
)

// ErrClosed is returned by Submit after Shutdown began
var ErrClosed = errors.New("async: pool closed")

// ErrFull is returned by Submit when the queue has no room
var ErrFull = errors.New("async: queue full")

// Task is one unit of background work; ctx is cancelled when the grace period ends
type Task func(ctx context.Context) error

// Options size the pool
type Options struct {
	Name    string
	Workers int
	Queue   int
}

type job struct {
	name string
	fn   Task
}

// Pool is a fixed set of workers draining a bounded queue
type Pool struct {
	name string
	jobs chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts the workers
func New(o Options) *Pool {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Queue <= 0 {
		o.Queue = 256
	}
	if o.Name == "" {
		o.Name = "background"
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:   o.Name,
		jobs:   make(chan job, o.Queue),
		ctx:    ctx,
		cancel: cancel,
	}
	p.wg.Add(o.Workers)
	for i := 0; i < o.Workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	log := logger.Named(p.name)
	defer func() {
		if v := recover(); v != nil {
			metrics.BackgroundTask(p.name, metrics.TaskPanic)
			log.Error().Str("task", j.name).Str("panic", fmt.Sprint(v)).Msg("background task panicked")
		}
	}()
	if err := j.fn(p.ctx); err != nil {
		metrics.BackgroundTask(p.name, metrics.TaskError)
		log.Warn().Err(err).Str("task", j.name).Msg("background task failed")
		return
	}
	metrics.BackgroundTask(p.name, metrics.TaskOK)
}

// Submit enqueues fn without blocking; a full queue drops the task
func (p *Pool) Submit(name string, fn Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- job{name: name, fn: fn}:
		return nil
	default:
		metrics.BackgroundTask(p.name, metrics.TaskDropped)
		logger.Named(p.name).Warn().Str("task", name).Msg("background queue full, task dropped")
		return ErrFull
	}
}

// Go is Submit for callers that only log the rejection
func (p *Pool) Go(name string, fn Task) { _ = p.Submit(name, fn) }

// Shutdown stops intake and waits for queued work; when ctx ends first
// the task context is cancelled and Shutdown returns ctx.Err() once workers exit
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// Inline runs every task on the caller goroutine; tests use it to keep ordering
type Inline struct{}

// Go runs fn now with a background context
func (Inline) Go(name string, fn Task) {
	if err := fn(context.Background()); err != nil {
		logger.Named("inline").Warn().Err(err).Str("task", name).Msg("inline task failed")
	}
}

// Runner is the surface services depend on
type Runner interface {
	Go(name string, fn Task)
}

var (
	_ Runner = (*Pool)(nil)
	_ Runner = Inline{}
)
