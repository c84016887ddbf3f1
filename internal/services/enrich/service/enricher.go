package service

import (
	"context"

	"swiftconcur/internal/core/summary"
	"swiftconcur/internal/services/enrich/domain"

	"golang.org/x/text/language"
)

// SummaryEnricher renders the deterministic warning summary
type SummaryEnricher struct {
	Lang language.Tag
}

// Enrich implements domain.Enricher
func (e SummaryEnricher) Enrich(ctx context.Context, m domain.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return summary.Text(summary.Build(m.Warnings), e.Lang), nil
}

// Facts flattens m into analytics rows
func Facts(m domain.Message) []domain.Fact {
	out := make([]domain.Fact, 0, len(m.Warnings))
	for _, w := range m.Warnings {
		out = append(out, domain.Fact{
			RepoID:     m.RepoID,
			RunID:      m.RunID,
			ReportedAt: m.Metadata.Timestamp,
			Branch:     m.Metadata.Branch,
			CommitSHA:  m.Metadata.CommitSHA,
			Type:       string(w.Type),
			Severity:   string(w.Severity),
			FilePath:   w.FilePath,
			LineNumber: uint32(max(w.LineNumber, 0)),
		})
	}
	return out
}
