// Package domain holds the ingestion types: the accepted response, the persisted Run, and ports
package domain

import (
	"context"
	"time"

	"swiftconcur/internal/core/report"
	"swiftconcur/internal/core/tier"
)

// FilePart is the multipart part carrying the report
const FilePart = "warnings.json"

// DefaultMaxBytes is the ceiling on the report file
const DefaultMaxBytes = 50 << 10

// StatusQueued is the only status an accepted report reports
const StatusQueued = "queued"

// Accepted is the 202 body
type Accepted struct {
	ID               string `json:"id" example:"5b1c3a52-7e8f-4f0e-9a43-7c2d6f1a9b10"`
	Status           string `json:"status" example:"queued"`
	WarningsCount    int    `json:"warnings_count" example:"10"`
	ProcessingTimeMS int64  `json:"processing_time_ms" example:"12"`
}

// Run is a persisted, accepted report
type Run struct {
	ID            string          `json:"id"`
	RepoID        string          `json:"repo_id"`
	CreatedAt     time.Time       `json:"created_at"`
	WarningsCount int             `json:"warnings_count"`
	BlobKey       string          `json:"blob_key,omitempty"`
	Summary       *string         `json:"summary,omitempty"`
	Metadata      report.Metadata `json:"metadata"`
}

// ListInput bounds run listings
type ListInput struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=100"`
}

// DefaultListLimit applies when no limit is given
const DefaultListLimit = 20

// Submission is one admission request after transport parsing
type Submission struct {
	RepoID string
	Tier   tier.Tier
	Body   []byte
}

// ServicePort is the ingestion contract
type ServicePort interface {
	Ingest(ctx context.Context, in Submission) (Accepted, error)
	Get(ctx context.Context, repoID, runID string) (Run, error)
	List(ctx context.Context, repoID string, in ListInput) ([]Run, error)
	Warnings(ctx context.Context, repoID, runID string) ([]report.Warning, error)
}
