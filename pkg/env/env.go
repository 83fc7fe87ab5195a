// Package env reads raw process environment values with fallbacks. It
// covers the few knobs that must work before config parsing runs, such
// as the log format picked up during logger construction.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
