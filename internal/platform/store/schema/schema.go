// Package schema holds the DDL for the row store and the analytics mirror
package schema

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed postgres.sql
var postgresDDL string

//go:embed clickhouse.sql
var clickhouseDDL string

// Execer is satisfied by the PG and ClickHouse seams
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) error
}

// Statements splits ddl on statement boundaries, dropping comments and blanks
func Statements(ddl string) []string {
	var out []string
	for _, chunk := range strings.Split(ddl, ";") {
		var lines []string
		for _, l := range strings.Split(chunk, "\n") {
			if t := strings.TrimSpace(l); t == "" || strings.HasPrefix(t, "--") {
				continue
			}
			lines = append(lines, l)
		}
		if len(lines) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(lines, "\n")))
		}
	}
	return out
}

// Postgres returns the row store statements in order
func Postgres() []string { return Statements(postgresDDL) }

// ClickHouse returns the analytics statements in order
func ClickHouse() []string { return Statements(clickhouseDDL) }

// Apply runs stmts one by one
func Apply(ctx context.Context, db Execer, stmts []string) error {
	for i, s := range stmts {
		if err := db.Exec(ctx, s); err != nil {
			return fmt.Errorf("schema: statement %d: %w", i+1, err)
		}
	}
	return nil
}

// ExecFunc adapts a function to Execer
type ExecFunc func(ctx context.Context, sql string, args ...any) error

// Exec calls f
func (f ExecFunc) Exec(ctx context.Context, sql string, args ...any) error { return f(ctx, sql, args...) }
