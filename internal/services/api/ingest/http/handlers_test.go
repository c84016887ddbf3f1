package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"swiftconcur/internal/core/report"
	"swiftconcur/internal/core/tier"
	"swiftconcur/internal/modkit/repokit"
	"swiftconcur/internal/platform/async"
	pnet "swiftconcur/internal/platform/net"
	phttp "swiftconcur/internal/platform/net/http"
	"swiftconcur/internal/platform/store"
	accessdomain "swiftconcur/internal/services/api/access/domain"
	"swiftconcur/internal/services/api/ingest/domain"
	"swiftconcur/internal/services/api/ingest/repo"
	"swiftconcur/internal/services/api/ingest/service"
	livedomain "swiftconcur/internal/services/api/live/domain"
	enrichdomain "swiftconcur/internal/services/enrich/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const repoID = "11111111-1111-1111-1111-111111111111"

// memRepo keeps committed runs; writes inside a transaction are staged until commit
type memRepo struct {
	mu        sync.Mutex
	runs      map[string]domain.Run
	warnings  map[string][]report.Warning
	staged    []func()
	failWrite error
}

func newMemRepo() *memRepo {
	return &memRepo{runs: map[string]domain.Run{}, warnings: map[string][]report.Warning{}}
}

func (m *memRepo) Exists(_ context.Context, runID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runs[runID]
	return ok, nil
}

func (m *memRepo) InsertRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.CreatedAt = time.Now()
	m.staged = append(m.staged, func() { m.runs[run.ID] = run })
	return nil
}

func (m *memRepo) InsertWarnings(_ context.Context, runID string, ws []report.Warning) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	m.staged = append(m.staged, func() { m.warnings[runID] = ws })
	return nil
}

func (m *memRepo) Get(_ context.Context, repo, runID string) (domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok || run.RepoID != repo {
		return domain.Run{}, pgx.ErrNoRows
	}
	return run, nil
}

func (m *memRepo) List(_ context.Context, repo string, limit int) ([]domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Run
	for _, r := range m.runs {
		if r.RepoID == repo && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) Warnings(_ context.Context, _, runID string) ([]report.Warning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warnings[runID], nil
}

type memTx struct {
	repokit.Queryer
	repo *memRepo
}

func (t memTx) Tx(_ context.Context, fn func(repokit.Queryer) error) error {
	err := fn(nil)
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if err == nil {
		for _, apply := range t.repo.staged {
			apply()
		}
	}
	t.repo.staged = nil
	return err
}

type memBlob struct {
	mu   sync.Mutex
	puts map[string]int
	err  error
}

func (b *memBlob) Put(_ context.Context, key string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.puts[key]++
	return nil
}

func (b *memBlob) Get(context.Context, string) ([]byte, error) { return nil, store.ErrBlobNotFound }
func (b *memBlob) Delete(context.Context, string) error        { return nil }

type spies struct {
	mu       sync.Mutex
	notified []livedomain.Event
	enqueued []enrichdomain.Message
}

func (s *spies) Notify(_ context.Context, _ string, ev livedomain.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified = append(s.notified, ev)
	return 0, nil
}

func (s *spies) Enqueue(_ context.Context, m enrichdomain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued = append(s.enqueued, m)
	return nil
}

type fixture struct {
	srv  *httptest.Server
	repo *memRepo
	blob *memBlob
	spy  *spies
	tier tier.Tier
}

func newFixture(t *testing.T, plan tier.Name, maxBytes int64) *fixture {
	t.Helper()
	f := &fixture{repo: newMemRepo(), blob: &memBlob{puts: map[string]int{}}, spy: &spies{}}
	f.tier = tier.Tier{Name: plan, Limits: tier.Default().Limits(plan)}

	b := repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return f.repo })
	svc := service.New(memTx{repo: f.repo}, b, f.blob, f.spy, f.spy, async.Inline{}, service.Config{MaxBytes: maxBytes})

	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := pnet.WithRepo(req.Context(), repoID)
			if req.Header.Get("X-Test-No-Tier") == "" {
				ctx = accessdomain.WithTier(ctx, f.tier)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	Register(r, svc)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func reportJSON(repo, run string, n int) []byte {
	ws := make([]report.Warning, n)
	for i := range ws {
		ws[i] = report.Warning{
			ID:         fmt.Sprintf("w%d", i),
			Type:       report.TypeSendableConformance,
			Severity:   report.SeverityMedium,
			FilePath:   "Sources/App/Model.swift",
			LineNumber: i + 1,
			Message:    "non-sendable type crosses actor boundary",
			CodeContext: report.CodeContext{
				Line: "let x = model",
			},
		}
	}
	b, _ := json.Marshal(report.Report{
		RepoID:   repo,
		RunID:    run,
		Warnings: ws,
		Metadata: report.Metadata{CommitSHA: "abcdef1234", Branch: "main", Timestamp: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)},
	})
	return b
}

func upload(t *testing.T, f *fixture, part string, body []byte, hdr map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile(part, "warnings.json")
	_, _ = fw.Write(body)
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, f.srv.URL+"/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func getJSON(t *testing.T, f *fixture, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestIngestAcceptsAndPersists(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Standard, 0)
	run := uuid.NewString()

	resp, body := upload(t, f, domain.FilePart, reportJSON(repoID, run, 10), nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d body = %v", resp.StatusCode, body)
	}
	if body["id"] != run || body["status"] != "queued" || body["warnings_count"] != float64(10) {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["processing_time_ms"]; !ok {
		t.Fatal("processing_time_ms missing")
	}

	status, got := getJSON(t, f, "/runs/"+run)
	data, _ := got["data"].(map[string]any)
	if status != http.StatusOK || data["warnings_count"] != float64(10) {
		t.Fatalf("run = %d %v", status, got)
	}
	if data["blob_key"] != report.BlobKey(repoID, run) {
		t.Fatalf("blob_key = %v", data["blob_key"])
	}
	if len(f.spy.notified) != 1 || f.spy.notified[0].WarningCount != 10 || f.spy.notified[0].Type != livedomain.EventNewRun {
		t.Fatalf("notified = %+v", f.spy.notified)
	}
	if len(f.spy.enqueued) != 1 || f.spy.enqueued[0].RunID != run || len(f.spy.enqueued[0].Warnings) != 10 {
		t.Fatalf("enqueued = %+v", f.spy.enqueued)
	}

	status, got = getJSON(t, f, "/runs/"+run+"/warnings")
	if ws, _ := got["data"].([]any); status != http.StatusOK || len(ws) != 10 {
		t.Fatalf("warnings = %d %v", status, got)
	}
}

func TestIngestHardCapRegardlessOfTier(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Premium, 1<<20)

	resp, body := upload(t, f, domain.FilePart, reportJSON(repoID, uuid.NewString(), 1500), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "1000") {
		t.Fatalf("error = %q", msg)
	}
	if len(f.repo.runs) != 0 || len(f.blob.puts) != 0 {
		t.Fatal("rejected report was written")
	}
}

func TestIngestByteCeilingPrecedesHardCap(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Premium, 0)

	resp, _ := upload(t, f, domain.FilePart, reportJSON(repoID, uuid.NewString(), 1500), nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(f.repo.runs) != 0 || len(f.blob.puts) != 0 {
		t.Fatal("rejected report was written")
	}
}

func TestIngestTierLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Baseline, 0)

	resp, _ := upload(t, f, domain.FilePart, reportJSON(repoID, uuid.NewString(), 101), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(f.repo.runs) != 0 {
		t.Fatal("rejected report was written")
	}
}

func TestIngestRowFailureLeavesNoRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Standard, 0)
	f.repo.failWrite = errors.New("connection reset")
	run := uuid.NewString()

	resp, _ := upload(t, f, domain.FilePart, reportJSON(repoID, run, 3), nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.blob.puts[report.BlobKey(repoID, run)] != 1 {
		t.Fatal("blob should have been written first")
	}
	if status, _ := getJSON(t, f, "/runs/"+run); status != http.StatusNotFound {
		t.Fatalf("run visible after failed write: %d", status)
	}
	if len(f.spy.notified) != 0 || len(f.spy.enqueued) != 0 {
		t.Fatal("failed write fanned out")
	}
}

func TestIngestBlobFailureStillAccepts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Standard, 0)
	f.blob.err = errors.New("disk full")
	run := uuid.NewString()

	resp, _ := upload(t, f, domain.FilePart, reportJSON(repoID, run, 5), nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	status, got := getJSON(t, f, "/runs/"+run)
	data, _ := got["data"].(map[string]any)
	if status != http.StatusOK || data["warnings_count"] != float64(5) {
		t.Fatalf("run = %d %v", status, got)
	}
	if _, ok := data["blob_key"]; ok {
		t.Fatalf("blob_key should be empty, got %v", data["blob_key"])
	}
}

func TestIngestDuplicateRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Standard, 0)
	run := uuid.NewString()
	body := reportJSON(repoID, run, 2)

	if resp, _ := upload(t, f, domain.FilePart, body, nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first = %d", resp.StatusCode)
	}
	if resp, _ := upload(t, f, domain.FilePart, body, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second = %d", resp.StatusCode)
	}
	if f.blob.puts[report.BlobKey(repoID, run)] != 1 {
		t.Fatal("duplicate overwrote the blob")
	}
}

func TestIngestRejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Premium, 0)
	valid := reportJSON(repoID, uuid.NewString(), 1)

	badEnum := bytes.Replace(valid, []byte(`"medium"`), []byte(`"catastrophic"`), 1)
	foreign := reportJSON(uuid.NewString(), uuid.NewString(), 1)
	big := append(bytes.Repeat([]byte(" "), domain.DefaultMaxBytes), valid...)

	cases := []struct {
		name   string
		part   string
		body   []byte
		hdr    map[string]string
		status int
	}{
		{"empty file", domain.FilePart, nil, nil, http.StatusBadRequest},
		{"oversize file", domain.FilePart, big, nil, http.StatusRequestEntityTooLarge},
		{"wrong part", "report", valid, nil, http.StatusBadRequest},
		{"not json", domain.FilePart, []byte("{nope"), nil, http.StatusBadRequest},
		{"bad severity", domain.FilePart, badEnum, nil, http.StatusBadRequest},
		{"other repository", domain.FilePart, foreign, nil, http.StatusForbidden},
		{"unknown field", domain.FilePart, []byte(`{"repo_id":"` + repoID + `","extra":1}`), nil, http.StatusBadRequest},
		{"plan not resolved", domain.FilePart, valid, map[string]string{"X-Test-No-Tier": "1"}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		resp, body := upload(t, f, tc.part, tc.body, tc.hdr)
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status %d, want %d (%v)", tc.name, resp.StatusCode, tc.status, body)
		}
	}
	if len(f.repo.runs) != 0 {
		t.Fatal("rejected reports were written")
	}
}

func TestIngestSchemaErrorsListFields(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Standard, 0)
	body := []byte(`{"repo_id":"` + repoID + `","run_id":"not-a-uuid","warnings":[{"id":"w","type":"data_race","severity":"low","file_path":"A.swift","line_number":0,"message":"m","code_context":{"before":[],"line":"","after":[]}}],"metadata":{"commit_sha":"xyz","branch":"main","timestamp":"2026-10-01T00:00:00Z"}}`)

	resp, out := upload(t, f, domain.FilePart, body, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	fields := map[string]bool{}
	errs, _ := out["errors"].([]any)
	for _, e := range errs {
		m, _ := e.(map[string]any)
		name, _ := m["field"].(string)
		fields[name] = true
	}
	for _, want := range []string{"run_id", "warnings[0].line_number", "metadata.commit_sha"} {
		if !fields[want] {
			t.Errorf("missing field error %q in %v", want, errs)
		}
	}
}

func TestIngestRequiresMultipart(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Standard, 0)
	resp, err := http.Post(f.srv.URL+"/reports", "application/json", bytes.NewReader(reportJSON(repoID, uuid.NewString(), 1)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRunQueries(t *testing.T) {
	t.Parallel()
	f := newFixture(t, tier.Standard, 0)
	for range 3 {
		upload(t, f, domain.FilePart, reportJSON(repoID, uuid.NewString(), 1), nil)
	}

	cases := []struct {
		path   string
		status int
	}{
		{"/runs", http.StatusOK},
		{"/runs?limit=2", http.StatusOK},
		{"/runs?limit=500", http.StatusBadRequest},
		{"/runs?limit=x", http.StatusBadRequest},
		{"/runs/" + uuid.NewString(), http.StatusNotFound},
		{"/runs/not-a-uuid", http.StatusNotFound},
		{"/runs/" + uuid.NewString() + "/warnings", http.StatusNotFound},
	}
	for _, tc := range cases {
		if status, body := getJSON(t, f, tc.path); status != tc.status {
			t.Errorf("%s: status %d, want %d (%v)", tc.path, status, tc.status, body)
		}
	}
	_, body := getJSON(t, f, "/runs?limit=2")
	if runs, _ := body["data"].([]any); len(runs) != 2 {
		t.Fatalf("runs = %v", body["data"])
	}
}
