// Package net carries request-scoped identifiers shared by transports
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey uint8

const (
	keyRepoID ctxKey = iota
	keyClientID
)

// WithRequestID stores reqID where chi's RequestID middleware would
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, reqID)
}

// RequestID returns the request id, if any
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// WithRepo stores the authenticated repository id
func WithRepo(ctx context.Context, repoID string) context.Context {
	if repoID == "" {
		return ctx
	}
	return context.WithValue(ctx, keyRepoID, repoID)
}

// RepoID returns the authenticated repository id, if any
func RepoID(ctx context.Context) string {
	v, _ := ctx.Value(keyRepoID).(string)
	return v
}

// WithClient stores the caller identity used for rate limiting
func WithClient(ctx context.Context, clientID string) context.Context {
	if clientID == "" {
		return ctx
	}
	return context.WithValue(ctx, keyClientID, clientID)
}

// ClientID returns the caller identity, if any
func ClientID(ctx context.Context) string {
	v, _ := ctx.Value(keyClientID).(string)
	return v
}
