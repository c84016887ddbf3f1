// Package report is the CI warning report model shared by ingestion and enrichment
package report

import "time"

// HardCap is the most warnings a single report may carry on any tier
const HardCap = 1000

// Type classifies a concurrency warning
type Type string

// Warning types
const (
	TypeActorIsolation        Type = "actor_isolation"
	TypeSendableConformance   Type = "sendable_conformance"
	TypeDataRace              Type = "data_race"
	TypePerformanceRegression Type = "performance_regression"
	TypeUnknown               Type = "unknown"
)

// Types lists every Type in display order
var Types = []Type{
	TypeActorIsolation,
	TypeSendableConformance,
	TypeDataRace,
	TypePerformanceRegression,
	TypeUnknown,
}

// Label is the human name of t
func (t Type) Label() string {
	switch t {
	case TypeActorIsolation:
		return "Actor Isolation"
	case TypeSendableConformance:
		return "Sendable Conformance"
	case TypeDataRace:
		return "Data Race"
	case TypePerformanceRegression:
		return "Performance Regression"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is one of Types
func (t Type) Valid() bool {
	switch t {
	case TypeActorIsolation, TypeSendableConformance, TypeDataRace, TypePerformanceRegression, TypeUnknown:
		return true
	}
	return false
}

// Severity ranks a warning
type Severity string

// Severities
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every Severity from most to least severe
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities; lower is worse. Unknown values sort last
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	}
	return 4
}

// CodeContext is the source excerpt around a warning
type CodeContext struct {
	Before []string `json:"before"`
	Line   string   `json:"line"`
	After  []string `json:"after"`
}

// Warning is one diagnostic
type Warning struct {
	ID           string      `json:"id" validate:"required,max=128"`
	Type         Type        `json:"type" validate:"required,oneof=actor_isolation sendable_conformance data_race performance_regression unknown"`
	Severity     Severity    `json:"severity" validate:"required,oneof=critical high medium low"`
	FilePath     string      `json:"file_path" validate:"required,max=1024"`
	LineNumber   int         `json:"line_number" validate:"min=1"`
	ColumnNumber *int        `json:"column_number,omitempty" validate:"omitempty,min=1"`
	Message      string      `json:"message" validate:"required"`
	CodeContext  CodeContext `json:"code_context"`
	SuggestedFix *string     `json:"suggested_fix,omitempty"`
}

// Metadata describes the CI run that produced a report
type Metadata struct {
	CommitSHA     string    `json:"commit_sha" validate:"required,hexadecimal,min=7,max=64"`
	Branch        string    `json:"branch" validate:"required,max=255"`
	PullRequest   *int      `json:"pull_request,omitempty" validate:"omitempty,min=1"`
	Scheme        string    `json:"scheme,omitempty" validate:"max=255"`
	Configuration string    `json:"configuration,omitempty" validate:"max=64"`
	SwiftVersion  string    `json:"swift_version,omitempty" validate:"max=32"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
}

// Report is what CI submits for one build
type Report struct {
	RepoID   string    `json:"repo_id" validate:"required,uuid"`
	RunID    string    `json:"run_id" validate:"required,uuid"`
	Warnings []Warning `json:"warnings" validate:"required,dive"`
	Metadata Metadata  `json:"metadata"`
}

// Count is the number of warnings carried
func (r Report) Count() int { return len(r.Warnings) }

// BlobKey is where the raw payload of run lives in the blob store
func BlobKey(repoID, runID string) string {
	return "runs/" + repoID + "/" + runID + ".json"
}
