package modkit

import (
	"swiftconcur/internal/modkit/repokit"
	"swiftconcur/internal/platform/async"
	"swiftconcur/internal/platform/config"
	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/store"

	"github.com/redis/go-redis/v9"
)

// Deps holds the shared backends handed to every module; disabled stores are nil
type Deps struct {
	Log  logger.Logger
	Cfg  config.Conf
	PG   repokit.TxRunner
	CH   store.Clickhouse
	RDS  *redis.Client
	Blob store.BlobStore
	// Bg runs fire-and-forget work after a response is written
	Bg async.Runner
}

// DepsFrom copies the opened backends out of st
func DepsFrom(st *store.Store, cfg config.Conf, bg async.Runner) Deps {
	d := Deps{Cfg: cfg, Bg: bg, Log: *logger.Get()}
	if st == nil {
		return d
	}
	d.Log = st.Log
	d.PG = st.PG
	d.CH = st.CH
	d.RDS = st.RDS
	d.Blob = st.Blob
	return d
}

// Runner returns Bg, or an inline runner when none was wired
func (d Deps) Runner() async.Runner {
	if d.Bg == nil {
		return async.Inline{}
	}
	return d.Bg
}
