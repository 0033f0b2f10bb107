package allowlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixed(entries ...string) *Allowlist {
	return FromStrings(func() []string { return entries })
}

func TestEmails_NormalizesEntries(t *testing.T) {
	list := fixed("  Admin@Example.com ", "OPS@example.com", "ops@example.com", "", "  ")

	assert.Equal(t, []string{"admin@example.com", "ops@example.com"}, list.Emails())
}

func TestEmails_PreservesSourceOrder(t *testing.T) {
	list := fixed("z@example.com", "a@example.com", "m@example.com")

	assert.Equal(t, []string{"z@example.com", "a@example.com", "m@example.com"}, list.Emails())
}

func TestEmails_DropsNonStringEntries(t *testing.T) {
	list := New(func() any {
		return []any{"admin@example.com", 42, nil, true, "ops@example.com"}
	})

	assert.Equal(t, []string{"admin@example.com", "ops@example.com"}, list.Emails())
}

func TestEmails_NonListSourceYieldsEmpty(t *testing.T) {
	list := New(func() any { return "admin@example.com" })

	assert.Empty(t, list.Emails())
}

func TestEmails_NilSourceYieldsEmpty(t *testing.T) {
	list := &Allowlist{}

	assert.Empty(t, list.Emails())
}

func TestAllows_CaseInsensitive(t *testing.T) {
	list := fixed("Admin@Example.com")

	assert.True(t, list.Allows("admin@example.com"))
	assert.True(t, list.Allows("ADMIN@EXAMPLE.COM"))
	assert.False(t, list.Allows("other@example.com"))
}

func TestAllows_RejectsEmptyInput(t *testing.T) {
	list := fixed("admin@example.com")

	assert.False(t, list.Allows(""))
}

func TestAllows_ReadsSourceFreshPerCall(t *testing.T) {
	entries := []string{}
	list := FromStrings(func() []string { return entries })

	assert.False(t, list.Allows("late@example.com"))

	entries = []string{"late@example.com"}
	assert.True(t, list.Allows("late@example.com"))
}
