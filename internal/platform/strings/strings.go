// Package strings holds string helpers for query arguments
package strings

import std "strings"

// SQLNull returns nil if s is blank, else s. Use it for optional text columns
func SQLNull(s string) any {
	if std.TrimSpace(s) == "" {
		return nil
	}
	return s
}
