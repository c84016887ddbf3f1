//go:build integration_pg

package pg_test

import (
	"context"
	"testing"

	"swiftconcur/internal/platform/store/pg"
	"swiftconcur/internal/platform/store/pg/pgtest"
)

func TestOpenAgainstContainer(t *testing.T) {
	url := pgtest.Start(t)
	p, err := pg.Open(context.Background(), pg.Config{URL: url, MaxConns: 2}, nil, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	var one int
	if err := p.Pool.QueryRow(context.Background(), "SELECT 1").Scan(&one); err != nil || one != 1 {
		t.Fatalf("select got %d err %v", one, err)
	}
}
