// Package domain defines the enrichment queue envelope and its ports
package domain

import (
	"context"
	"time"

	"swiftconcur/internal/core/report"
)

// DefaultMaxAttempts is the delivery ceiling before a message is abandoned
const DefaultMaxAttempts = 3

// Message is one queued enrichment job. Attempt counts deliveries and is
// incremented by the queue when a message is leased, never by the consumer
type Message struct {
	ID       string           `json:"id"`
	RepoID   string           `json:"repo_id"`
	RunID    string           `json:"run_id"`
	Warnings []report.Warning `json:"warnings"`
	Metadata report.Metadata  `json:"metadata"`
	Attempt  int              `json:"attempt"`
}

// Payload is the stored body of a message
type Payload struct {
	Warnings []report.Warning `json:"warnings"`
	Metadata report.Metadata  `json:"metadata"`
}

// Outcome is what the consumer does with a processed message
type Outcome uint8

// Outcomes
const (
	// Done acknowledges after a successful enrichment
	Done Outcome = iota + 1
	// Retry returns the message to the queue
	Retry
	// Abandon acknowledges a message that ran out of attempts
	Abandon
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Retry:
		return "retried"
	case Abandon:
		return "abandoned"
	}
	return "unknown"
}

// Exhausted reports a delivery past the ceiling, as happens when a worker dies holding the last
// attempt and the lease expires. Such a message is acknowledged without running again
func Exhausted(attempt, maxAttempts int) bool { return attempt > maxAttempts }

// Decide maps an enrichment result onto an outcome
func Decide(attempt, maxAttempts int, err error) Outcome {
	if err == nil {
		return Done
	}
	if attempt < maxAttempts {
		return Retry
	}
	return Abandon
}

// EnqueuePort accepts new jobs; duplicates for a run are ignored
type EnqueuePort interface {
	Enqueue(ctx context.Context, m Message) error
}

// WorkerPort runs the consumer loop until ctx ends; Drain processes one leased batch
type WorkerPort interface {
	Run(ctx context.Context) error
	Drain(ctx context.Context) (int, error)
}

// Enricher derives the summary of a message
type Enricher interface {
	Enrich(ctx context.Context, m Message) (string, error)
}

// Fact is one row of the analytics mirror
type Fact struct {
	RepoID     string
	RunID      string
	ReportedAt time.Time
	Branch     string
	CommitSHA  string
	Type       string
	Severity   string
	FilePath   string
	LineNumber uint32
}

// FactSink mirrors warnings into the analytics store
type FactSink interface {
	WriteFacts(ctx context.Context, facts []Fact) error
}
