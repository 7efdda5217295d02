package domain

import (
	"strings"
	"time"
)

// Account is a principal known to identity storage. Authorities are opaque
// role strings; authorization policy lives outside this service.
type Account struct {
	ID           string
	Subject      string
	PasswordHash string
	Authorities  []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JoinAuthorities serializes an authority list into its stored form.
func JoinAuthorities(authorities []string) string {
	return strings.Join(authorities, ",")
}

// SplitAuthorities parses the stored comma-joined form, dropping empty entries.
func SplitAuthorities(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
