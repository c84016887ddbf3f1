package store

import (
	"time"

	"swiftconcur/internal/platform/config"
)

// Config aggregates per-backend configuration
type Config struct {
	AppName string

	PG   PGConfig
	CH   CHConfig
	RDS  RedisConfig
	Blob BlobConfig
}

// PGConfig configures the row store pool
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
	// ConnectRetries bounds the boot ping loop
	ConnectRetries int
}

// CHConfig configures the analytics mirror; URL is a clickhouse:// DSN
type CHConfig struct {
	Enabled bool
	URL     string
}

// RedisConfig configures the counter store
type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BlobConfig configures the artifact store
type BlobConfig struct {
	Enabled bool
	Dir     string
}

// FromEnv reads SERVICE_PGSQL_*, SERVICE_CH_*, SERVICE_REDIS_* and BLOB_*
func FromEnv(app string, cfg config.Conf) Config {
	pg := cfg.Prefix("SERVICE_PGSQL_")
	ch := cfg.Prefix("SERVICE_CH_")
	rd := cfg.Prefix("SERVICE_REDIS_")
	bl := cfg.Prefix("BLOB_")
	return Config{
		AppName: app,
		PG: PGConfig{
			Enabled:        pg.MayBool("ENABLED", true),
			URL:            pg.MayString("DBURL", ""),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 8)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_QUERY_MS", 250),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
		},
		CH: CHConfig{
			Enabled: ch.MayBool("ENABLED", false),
			URL:     ch.MayString("DSN", "clickhouse://localhost:9000/default"),
		},
		RDS: RedisConfig{
			Enabled:      rd.MayBool("ENABLED", true),
			Addr:         rd.MayString("ADDR", "localhost:6379"),
			Password:     rd.MayString("PASSWORD", ""),
			DB:           rd.MayInt("DB", 0),
			DialTimeout:  rd.MayDuration("DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  rd.MayDuration("READ_TIMEOUT", 250*time.Millisecond),
			WriteTimeout: rd.MayDuration("WRITE_TIMEOUT", 250*time.Millisecond),
		},
		Blob: BlobConfig{
			Enabled: bl.MayBool("ENABLED", true),
			Dir:     bl.MayString("DIR", "./data/blobs"),
		},
	}
}
