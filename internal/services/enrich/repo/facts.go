package repo

import (
	"context"

	"swiftconcur/internal/platform/store"
	"swiftconcur/internal/services/enrich/domain"

	"github.com/google/uuid"
)

// FactsTable is the ClickHouse table warning facts land in
const FactsTable = "warning_facts"

// CHSink writes facts to ClickHouse
type CHSink struct{ ch store.Clickhouse }

// NewCHSink wraps ch
func NewCHSink(ch store.Clickhouse) *CHSink { return &CHSink{ch: ch} }

// WriteFacts appends facts in column order of warning_facts
func (s *CHSink) WriteFacts(ctx context.Context, facts []domain.Fact) error {
	rows := make([][]any, 0, len(facts))
	for _, f := range facts {
		repoID, err := uuid.Parse(f.RepoID)
		if err != nil {
			return err
		}
		runID, err := uuid.Parse(f.RunID)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			repoID, runID, f.ReportedAt.UTC(), f.Branch, f.CommitSHA,
			f.Type, f.Severity, f.FilePath, f.LineNumber,
		})
	}
	return s.ch.InsertRows(ctx, FactsTable, rows)
}
