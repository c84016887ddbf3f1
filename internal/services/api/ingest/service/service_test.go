package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"swiftconcur/internal/core/report"
	"swiftconcur/internal/core/tier"
	"swiftconcur/internal/modkit/repokit"
	perr "swiftconcur/internal/platform/errors"
	"swiftconcur/internal/services/api/ingest/domain"
	"swiftconcur/internal/services/api/ingest/repo"

	"github.com/google/uuid"
)

type nopTx struct{ repokit.Queryer }

func (nopTx) Tx(ctx context.Context, fn func(repokit.Queryer) error) error { return fn(nil) }

func newSvc(maxBytes int64) *Svc {
	b := repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return nil })
	return New(nopTx{}, b, nil, nil, nil, nil, Config{MaxBytes: maxBytes})
}

func body(repoID string, n int, mut func(*report.Report)) []byte {
	r := report.Report{
		RepoID:   repoID,
		RunID:    uuid.NewString(),
		Warnings: make([]report.Warning, n),
		Metadata: report.Metadata{CommitSHA: "0123abc", Branch: "main", Timestamp: time.Now().UTC()},
	}
	for i := range r.Warnings {
		r.Warnings[i] = report.Warning{ID: "w", Type: report.TypeDataRace, Severity: report.SeverityLow, FilePath: "A.swift", LineNumber: 1, Message: "m"}
	}
	if mut != nil {
		mut(&r)
	}
	b, _ := json.Marshal(r)
	return b
}

func TestAdmit(t *testing.T) {
	t.Parallel()
	repoID := uuid.NewString()
	std := tier.Tier{Name: tier.Standard, Limits: tier.Default().Limits(tier.Standard)}
	s := newSvc(1 << 20)

	cases := []struct {
		name string
		body []byte
		tier tier.Tier
		code perr.ErrorCode
		ok   bool
	}{
		{"valid", body(repoID, 3, nil), std, 0, true},
		{"whitespace only", []byte("  \n "), std, perr.ErrorCodeValidation, false},
		{"over hard cap", body(repoID, report.HardCap+1, nil), tier.Tier{Name: "test", Limits: tier.Limits{MaxWarningsPerRun: 5000}}, perr.ErrorCodeValidation, false},
		{"at hard cap within tier", body(repoID, report.HardCap, nil), tier.Tier{Name: "test", Limits: tier.Limits{MaxWarningsPerRun: 5000}}, 0, true},
		{"over tier", body(repoID, 501, nil), std, perr.ErrorCodeForbidden, false},
		{"foreign repo", body(uuid.NewString(), 1, nil), std, perr.ErrorCodeForbidden, false},
		{"short sha", body(repoID, 1, func(r *report.Report) { r.Metadata.CommitSHA = "abc" }), std, perr.ErrorCodeValidation, false},
		{"bad type", body(repoID, 1, func(r *report.Report) { r.Warnings[0].Type = "deadlock" }), std, perr.ErrorCodeValidation, false},
		{"trailing data", append(body(repoID, 1, nil), []byte(` {}`)...), std, perr.ErrorCodeJSON, false},
	}
	for _, tc := range cases {
		rep, err := s.admit(domain.Submission{RepoID: repoID, Tier: tc.tier, Body: tc.body})
		if tc.ok {
			if err != nil {
				t.Errorf("%s: %v", tc.name, err)
			} else if rep.RepoID != repoID {
				t.Errorf("%s: repo = %s", tc.name, rep.RepoID)
			}
			continue
		}
		if err == nil || perr.CodeOf(err) != tc.code {
			t.Errorf("%s: err = %v, want code %d", tc.name, err, tc.code)
		}
	}
}

func TestAdmitHardCapMessage(t *testing.T) {
	t.Parallel()
	s := newSvc(1 << 20)
	repoID := uuid.NewString()
	_, err := s.admit(domain.Submission{RepoID: repoID, Tier: tier.Tier{Limits: tier.Limits{MaxWarningsPerRun: 5000}}, Body: body(repoID, 1500, nil)})
	if err == nil || !strings.Contains(err.Error(), "1000") {
		t.Fatalf("err = %v", err)
	}
}

func TestAdmitByteCeiling(t *testing.T) {
	t.Parallel()
	s := newSvc(0)
	if s.MaxBytes() != domain.DefaultMaxBytes {
		t.Fatalf("default ceiling = %d", s.MaxBytes())
	}
	repoID := uuid.NewString()
	big := body(repoID, 600, nil)
	if len(big) <= domain.DefaultMaxBytes {
		t.Fatalf("fixture too small: %d bytes", len(big))
	}
	_, err := s.admit(domain.Submission{RepoID: repoID, Tier: tier.Tier{Limits: tier.Limits{MaxWarningsPerRun: 1000}}, Body: big})
	if perr.CodeOf(err) != perr.ErrorCodeTooLarge {
		t.Fatalf("err = %v", err)
	}
}
