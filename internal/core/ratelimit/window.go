// Package ratelimit approximates a rolling hour with two adjacent hourly counters
package ratelimit

import (
	"math"
	"strconv"
	"time"
)

// Width is the bucket width
const Width = time.Hour

// TTL keeps a bucket readable while it is the previous bucket, plus slack
const TTL = 2*Width + time.Minute

// Bucket is the index of the hour containing t
func Bucket(t time.Time) int64 { return t.Unix() / int64(Width/time.Second) }

// Key names the counter for (tenant, client, bucket)
func Key(tenant, client string, bucket int64) string {
	return "rl:" + tenant + ":" + client + ":" + strconv.FormatInt(bucket, 10)
}

// Elapsed is the fraction of t's bucket already gone, in [0,1)
func Elapsed(t time.Time) float64 {
	w := int64(Width)
	off := t.UnixNano() % w
	if off < 0 {
		off += w
	}
	return float64(off) / float64(w)
}

// Effective weights the previous bucket by the part of it still inside the rolling hour
func Effective(prev, cur int64, elapsed float64) float64 {
	return float64(prev)*(1-elapsed) + float64(cur)
}

// Decision is the outcome of one check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Decide applies limit to the two counters observed at now
func Decide(limit int, prev, cur int64, now time.Time) Decision {
	reset := time.Unix((Bucket(now)+1)*int64(Width/time.Second), 0)
	eff := Effective(prev, cur, Elapsed(now))
	d := Decision{Limit: limit, Reset: reset}
	if eff >= float64(limit) {
		d.RetryAfter = max(reset.Sub(now).Round(time.Second), time.Second)
		return d
	}
	d.Allowed = true
	d.Remaining = max(limit-int(math.Ceil(eff))-1, 0)
	return d
}

// Open is the decision used when counters are unreadable
func Open(limit int, now time.Time) Decision {
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit,
		Reset:     time.Unix((Bucket(now)+1)*int64(Width/time.Second), 0),
	}
}
