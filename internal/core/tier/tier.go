// Package tier is the closed set of repository plans and their limits
package tier

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Name identifies a plan
type Name string

// Plans
const (
	Baseline Name = "baseline"
	Standard Name = "standard"
	Premium  Name = "premium"
)

// Limits is the tuple a plan grants
type Limits struct {
	RequestsPerHour   int `yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxWarningsPerRun int `yaml:"max_warnings_per_run" json:"max_warnings_per_run"`
	MaxRunsRetained   int `yaml:"max_runs_retained" json:"max_runs_retained"`
}

// Tier is a resolved plan
type Tier struct {
	Name Name `json:"name"`
	Limits
}

// Catalog maps plan names to limits
type Catalog struct {
	plans map[Name]Limits
}

// Default returns the built-in plans
func Default() Catalog {
	return Catalog{plans: map[Name]Limits{
		Baseline: {RequestsPerHour: 100, MaxWarningsPerRun: 100, MaxRunsRetained: 30},
		Standard: {RequestsPerHour: 1000, MaxWarningsPerRun: 500, MaxRunsRetained: 500},
		Premium:  {RequestsPerHour: 10000, MaxWarningsPerRun: 1000, MaxRunsRetained: 5000},
	}}
}

// Parse normalizes s; unknown names are not plans
func Parse(s string) (Name, bool) {
	switch n := Name(strings.ToLower(strings.TrimSpace(s))); n {
	case Baseline, Standard, Premium:
		return n, true
	}
	return "", false
}

// Resolve returns the tier for name
func (c Catalog) Resolve(name string) (Tier, error) {
	n, ok := Parse(name)
	if !ok {
		return Tier{}, fmt.Errorf("tier: unknown plan %q", name)
	}
	return Tier{Name: n, Limits: c.plans[n]}, nil
}

// Limits returns the limits of a known plan
func (c Catalog) Limits(n Name) Limits { return c.plans[n] }

type fileShape struct {
	Tiers map[string]Limits `yaml:"tiers"`
}

// Overlay replaces the limits of plans named in data. Only known plans may
// appear and every limit must be positive
func (c Catalog) Overlay(data []byte) (Catalog, error) {
	var f fileShape
	if err := yaml.Unmarshal(data, &f); err != nil {
		return c, fmt.Errorf("tier: parse overrides: %w", err)
	}
	out := Catalog{plans: make(map[Name]Limits, len(c.plans))}
	for k, v := range c.plans {
		out.plans[k] = v
	}
	for raw, l := range f.Tiers {
		n, ok := Parse(raw)
		if !ok {
			return c, fmt.Errorf("tier: unknown plan %q in overrides", raw)
		}
		if l.RequestsPerHour <= 0 || l.MaxWarningsPerRun <= 0 || l.MaxRunsRetained <= 0 {
			return c, fmt.Errorf("tier: %s limits must be positive", n)
		}
		out.plans[n] = l
	}
	return out, nil
}

// Load returns Default overlaid with path; an empty path is the default catalog
func Load(path string) (Catalog, error) {
	c := Default()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("tier: read %s: %w", path, err)
	}
	return c.Overlay(data)
}
