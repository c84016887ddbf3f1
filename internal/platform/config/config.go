// Package config is the env-backed configuration view used by modules
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"swiftconcur/internal/platform/logger"
)

// Conf is a prefixed view over the environment, e.g. New().Prefix("CORE_API_")
type Conf struct{ prefix string }

// New returns an unprefixed view
func New() Conf { return Conf{} }

// Prefix returns a child view with p appended to the current prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Key returns the fully qualified variable name
func (c Conf) Key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.Key(k))) }

func (c Conf) fail(k, value, msg string) {
	ev := logger.Get().Panic().Str("key", c.Key(k))
	if value != "" {
		ev = ev.Str("value", value)
	}
	ev.Msg(msg)
}

// MustString panics when the variable is unset or blank
func (c Conf) MustString(k string) string {
	v := c.lookup(k)
	if v == "" {
		c.fail(k, "", "missing required env")
	}
	return v
}

// MustInt panics when the variable is unset or not an integer
func (c Conf) MustInt(k string) int {
	s := c.MustString(k)
	n, err := strconv.Atoi(s)
	if err != nil {
		c.fail(k, s, "invalid int value")
	}
	return n
}

// MayString returns def when unset
func (c Conf) MayString(k, def string) string {
	if v := c.lookup(k); v != "" {
		return v
	}
	return def
}

// MayInt returns def when unset; a malformed value panics
func (c Conf) MayInt(k string, def int) int {
	s := c.lookup(k)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		c.fail(k, s, "invalid int value")
	}
	return n
}

// MayBool returns def when unset; a malformed value panics
func (c Conf) MayBool(k string, def bool) bool {
	s := c.lookup(k)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		c.fail(k, s, "invalid bool value")
	}
	return b
}

// MayDuration returns def when unset; values use time.ParseDuration syntax (250ms, 2s, 1h)
func (c Conf) MayDuration(k string, def time.Duration) time.Duration {
	s := c.lookup(k)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		c.fail(k, s, "invalid duration")
	}
	return d
}

// MayCSV splits a comma separated list, dropping blanks
func (c Conf) MayCSV(k string, def []string) []string {
	s := c.lookup(k)
	if s == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MayEnum returns the value when it is one of allowed, else def
func (c Conf) MayEnum(k, def string, allowed ...string) string {
	v := strings.ToLower(c.lookup(k))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}
