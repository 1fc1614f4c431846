// Package util holds small process-environment helpers shared by the commands.
package util

import (
	"os"
	"strings"
)

// EnvOrDefault returns the trimmed environment variable value, or fallback
// when it is unset or blank.
func EnvOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// FirstExisting returns the first candidate that names a regular file, or ""
// when none does.
func FirstExisting(candidates ...string) string {
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}
