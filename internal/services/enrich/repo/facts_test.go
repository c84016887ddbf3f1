package repo

import (
	"context"
	"testing"
	"time"

	"swiftconcur/internal/services/enrich/domain"

	"github.com/google/uuid"
)

type chSpy struct {
	table string
	rows  [][]any
}

func (c *chSpy) Exec(context.Context, string, ...any) error { return nil }
func (c *chSpy) Ping(context.Context) error                 { return nil }
func (c *chSpy) Close() error                               { return nil }
func (c *chSpy) InsertRows(_ context.Context, table string, rows [][]any) error {
	c.table, c.rows = table, rows
	return nil
}

func TestCHSinkWritesColumnOrder(t *testing.T) {
	t.Parallel()
	spy := &chSpy{}
	repoID, runID := uuid.New(), uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))

	err := NewCHSink(spy).WriteFacts(context.Background(), []domain.Fact{{
		RepoID: repoID.String(), RunID: runID.String(), ReportedAt: at,
		Branch: "main", CommitSHA: "abc1234", Type: "data_race", Severity: "critical",
		FilePath: "Sources/A.swift", LineNumber: 9,
	}})
	if err != nil {
		t.Fatal(err)
	}
	if spy.table != FactsTable || len(spy.rows) != 1 {
		t.Fatalf("table=%q rows=%d", spy.table, len(spy.rows))
	}
	row := spy.rows[0]
	if row[0] != repoID || row[1] != runID {
		t.Fatalf("ids = %v %v", row[0], row[1])
	}
	if ts := row[2].(time.Time); ts.Location() != time.UTC || !ts.Equal(at) {
		t.Fatalf("reported_at = %v", ts)
	}
	if row[8] != uint32(9) {
		t.Fatalf("line = %v", row[8])
	}
}

func TestCHSinkRejectsBadIDs(t *testing.T) {
	t.Parallel()
	spy := &chSpy{}
	err := NewCHSink(spy).WriteFacts(context.Background(), []domain.Fact{{RepoID: "nope", RunID: uuid.NewString()}})
	if err == nil || spy.rows != nil {
		t.Fatalf("err=%v rows=%v", err, spy.rows)
	}
}
