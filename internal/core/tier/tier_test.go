package tier

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultResolve(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want Limits
	}{
		{"baseline", Limits{100, 100, 30}},
		{" Standard ", Limits{1000, 500, 500}},
		{"PREMIUM", Limits{10000, 1000, 5000}},
	}
	c := Default()
	for _, tc := range cases {
		got, err := c.Resolve(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got.Limits != tc.want {
			t.Fatalf("%q = %+v, want %+v", tc.in, got.Limits, tc.want)
		}
	}
	if _, err := c.Resolve("enterprise"); err == nil {
		t.Fatalf("unknown plan resolved")
	}
}

func TestOverlay(t *testing.T) {
	t.Parallel()
	c, err := Default().Overlay([]byte(`
tiers:
  baseline:
    requests_per_hour: 50
    max_warnings_per_run: 20
    max_runs_retained: 10
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Limits(Baseline); got.RequestsPerHour != 50 || got.MaxWarningsPerRun != 20 {
		t.Fatalf("overlay not applied: %+v", got)
	}
	if got := c.Limits(Premium); got.RequestsPerHour != 10000 {
		t.Fatalf("untouched plan changed: %+v", got)
	}
	if Default().Limits(Baseline).RequestsPerHour != 100 {
		t.Fatalf("overlay mutated the default catalog")
	}

	bad := []string{
		"tiers: [",
		"tiers:\n  gold:\n    requests_per_hour: 1\n    max_warnings_per_run: 1\n    max_runs_retained: 1\n",
		"tiers:\n  premium:\n    requests_per_hour: 0\n    max_warnings_per_run: 1\n    max_runs_retained: 1\n",
	}
	for _, b := range bad {
		if _, err := Default().Overlay([]byte(b)); err == nil {
			t.Fatalf("expected error for %q", b)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	c, err := Load("")
	if err != nil || c.Limits(Standard).RequestsPerHour != 1000 {
		t.Fatalf("empty path: %v", err)
	}

	p := filepath.Join(t.TempDir(), "tiers.yaml")
	body := "tiers:\n  standard:\n    requests_per_hour: 7\n    max_warnings_per_run: 7\n    max_runs_retained: 7\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err = Load(p)
	if err != nil || c.Limits(Standard).RequestsPerHour != 7 {
		t.Fatalf("file overlay: %+v %v", c.Limits(Standard), err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read") {
		t.Fatalf("missing file err = %v", err)
	}
}
