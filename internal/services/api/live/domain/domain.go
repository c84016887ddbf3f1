// Package domain holds the live notification protocol: events pushed to dashboards
// and the fixed set of messages a connected client may send
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownEvent rejects events outside the closed set
var ErrUnknownEvent = errors.New("live: unknown event type")

// EventKind is the closed set of activity events
type EventKind string

// Event kinds
const (
	EventNewRun EventKind = "new_run"
)

// EventKinds lists every kind a client may subscribe to
var EventKinds = []EventKind{EventNewRun}

// Valid reports whether k is a known kind
func (k EventKind) Valid() bool {
	switch k {
	case EventNewRun:
		return true
	}
	return false
}

// Event is one activity entry, also the body of the internal notify call
type Event struct {
	Type         EventKind `json:"type" validate:"required"`
	RunID        string    `json:"run_id" validate:"required,uuid"`
	WarningCount int       `json:"warning_count" validate:"min=0"`
	Timestamp    time.Time `json:"timestamp"`
}

// NotifyResult is the reply to a notify call
type NotifyResult struct {
	Success             bool `json:"success"`
	ConnectionsNotified int  `json:"connections_notified"`
}

// ClientKind is the closed set of client message types
type ClientKind uint8

// Client message kinds
const (
	ClientUnknown ClientKind = iota
	ClientPing
	ClientSubscribe
	ClientGetActivity
)

// ParseClientKind maps a wire type onto a kind
func ParseClientKind(s string) ClientKind {
	switch s {
	case "ping":
		return ClientPing
	case "subscribe":
		return ClientSubscribe
	case "get_activity":
		return ClientGetActivity
	}
	return ClientUnknown
}

// ClientMessage is what a connected client sends
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventKind `json:"events,omitempty"`
	Limit  *int        `json:"limit,omitempty"`
}

// Server message types
const (
	TypeConnected       = "connected"
	TypeActivityHistory = "activity_history"
	TypePong            = "pong"
	TypeSubscribed      = "subscribed"
	TypeActivity        = "activity_response"
	TypeError           = "error"
)

// Stamped is connected and pong
type Stamped struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscribed acknowledges a subscribe
type Subscribed struct {
	Type   string      `json:"type"`
	Events []EventKind `json:"events"`
}

// ActivityData is activity_history and activity_response
type ActivityData struct {
	Type string  `json:"type"`
	Data []Event `json:"data"`
}

// ErrorMessage reports a rejected client message
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Activity limits
const (
	// BufferSize is how many events an actor remembers
	BufferSize = 50
	// ReplaySize is how many events a new connection receives
	ReplaySize = 10
	// DefaultActivityLimit applies when get_activity carries no limit
	DefaultActivityLimit = 10
)

// ClampLimit applies the default and the buffer cap
func ClampLimit(n *int) int {
	if n == nil || *n <= 0 {
		return DefaultActivityLimit
	}
	return min(*n, BufferSize)
}

// Conn is a live connection as an actor sees it
type Conn interface {
	ID() string
	Send(ctx context.Context, v any) error
	// Closed reports whether the transport has failed or been closed
	Closed() bool
	Close(reason string)
}

// Stats describes one actor
type Stats struct {
	RepoID      string `json:"repo_id"`
	Connections int    `json:"connections"`
	Buffered    int    `json:"buffered"`
}

// NotifyPort delivers an event to a repository's live connections
type NotifyPort interface {
	Notify(ctx context.Context, repoID string, ev Event) (int, error)
}

// ActivityPort reads a repository's recent activity
type ActivityPort interface {
	Activity(ctx context.Context, repoID string, limit int) ([]Event, error)
}
