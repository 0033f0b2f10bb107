// Package allowlist decides which email addresses belong to privileged
// (admin) users. Membership is evaluated against the live configuration
// source on every call so tests and admin tooling can change it between
// requests.
package allowlist

import "strings"

// Allowlist normalizes and membership-tests the configured admin emails.
// Source returns the raw configured value; anything that is not a list of
// strings is treated as an empty list rather than an error.
type Allowlist struct {
	Source func() any
}

func New(source func() any) *Allowlist {
	return &Allowlist{Source: source}
}

// FromStrings wraps a plain string-slice source, the common case when the
// list comes from the environment.
func FromStrings(source func() []string) *Allowlist {
	return &Allowlist{Source: func() any { return source() }}
}

// Emails returns the normalized allowlist: trimmed, lower-cased, blanks and
// non-string entries dropped, duplicates removed, source order preserved.
func (a *Allowlist) Emails() []string {
	raw := a.rawEntries()

	normalized := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, entry := range raw {
		email := strings.ToLower(strings.TrimSpace(entry))
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		normalized = append(normalized, email)
	}

	return normalized
}

// Allows reports whether the candidate email is on the allowlist.
// Comparison is case-insensitive; empty input is never allowed.
func (a *Allowlist) Allows(email string) bool {
	if email == "" {
		return false
	}

	candidate := strings.ToLower(email)
	for _, allowed := range a.Emails() {
		if allowed == candidate {
			return true
		}
	}
	return false
}

func (a *Allowlist) rawEntries() []string {
	if a == nil || a.Source == nil {
		return nil
	}

	switch v := a.Source().(type) {
	case []string:
		return v
	case []any:
		entries := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				entries = append(entries, s)
			}
		}
		return entries
	default:
		return nil
	}
}
