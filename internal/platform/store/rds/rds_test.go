package rds

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNewTalksToServer(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	c := New(Config{Addr: mr.Addr(), DialTimeout: time.Second, ReadTimeout: time.Second, WriteTimeout: time.Second})
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if n, err := c.Incr(ctx, "k").Result(); err != nil || n != 1 {
		t.Fatalf("incr got %d err %v", n, err)
	}
}
