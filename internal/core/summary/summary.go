// Package summary derives the enrichment summary stored on a run
package summary

import (
	"sort"
	"strings"

	"swiftconcur/internal/core/report"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/unicode/norm"
)

const (
	topFiles      = 3
	maxHighlights = 3
	maxHighlight  = 120
)

// FileCount is the warning count of one file
type FileCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Summary is the aggregate view of a run's warnings
type Summary struct {
	Total      int                     `json:"total"`
	Files      int                     `json:"files"`
	ByType     map[report.Type]int     `json:"by_type"`
	BySeverity map[report.Severity]int `json:"by_severity"`
	TopFiles   []FileCount             `json:"top_files"`
	Highlights []string                `json:"highlights"`
}

// Build aggregates ws; the result only depends on ws and its order
func Build(ws []report.Warning) Summary {
	s := Summary{
		Total:      len(ws),
		ByType:     map[report.Type]int{},
		BySeverity: map[report.Severity]int{},
	}
	files := map[string]int{}
	for _, w := range ws {
		t := w.Type
		if !t.Valid() {
			t = report.TypeUnknown
		}
		s.ByType[t]++
		s.BySeverity[w.Severity]++
		files[w.FilePath]++
		if w.Severity == report.SeverityCritical && len(s.Highlights) < maxHighlights {
			s.Highlights = append(s.Highlights, clip(norm.NFC.String(strings.TrimSpace(w.Message)), maxHighlight))
		}
	}
	s.Files = len(files)

	for p, n := range files {
		s.TopFiles = append(s.TopFiles, FileCount{Path: p, Count: n})
	}
	sort.Slice(s.TopFiles, func(i, j int) bool {
		a, b := s.TopFiles[i], s.TopFiles[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Path < b.Path
	})
	if len(s.TopFiles) > topFiles {
		s.TopFiles = s.TopFiles[:topFiles]
	}
	return s
}

// Text renders s as one paragraph in lang
func Text(s Summary, lang language.Tag) string {
	p := message.NewPrinter(lang)
	if s.Total == 0 {
		return "No concurrency warnings."
	}

	var b strings.Builder
	if s.Total == 1 {
		b.WriteString("1 concurrency warning in 1 file.")
	} else {
		b.WriteString(p.Sprintf("%d concurrency warnings across %d files.", s.Total, s.Files))
	}

	var parts []string
	for _, t := range report.Types {
		if n := s.ByType[t]; n > 0 {
			parts = append(parts, p.Sprintf("%s %d", t.Label(), n))
		}
	}
	b.WriteString(" By type: " + strings.Join(parts, ", ") + ".")

	title := cases.Title(lang)
	parts = parts[:0]
	for _, sev := range report.Severities {
		if n := s.BySeverity[sev]; n > 0 {
			parts = append(parts, p.Sprintf("%s %d", title.String(string(sev)), n))
		}
	}
	if len(parts) > 0 {
		b.WriteString(" By severity: " + strings.Join(parts, ", ") + ".")
	}

	if len(s.TopFiles) > 0 {
		parts = parts[:0]
		for _, f := range s.TopFiles {
			parts = append(parts, p.Sprintf("%s (%d)", f.Path, f.Count))
		}
		b.WriteString(" Most affected: " + strings.Join(parts, ", ") + ".")
	}
	if len(s.Highlights) > 0 {
		b.WriteString(" Critical: " + strings.Join(s.Highlights, "; ") + ".")
	}
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
