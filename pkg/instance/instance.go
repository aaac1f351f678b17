// Package instance names the running process for logs and lock ownership.
package instance

import (
	"os"
	"strings"
)

// ID returns FASTBAG_INSTANCE_ID, falling back to the hostname and then to
// the service kind with a -0 suffix.
func ID(kind string) string {
	if id := strings.TrimSpace(os.Getenv("FASTBAG_INSTANCE_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	if kind == "" {
		kind = "worker"
	}
	return kind + "-0"
}
