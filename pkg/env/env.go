// Package env reads raw environment values needed before the typed config
// is parsed, such as the logger's output format.
package env

import "os"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
