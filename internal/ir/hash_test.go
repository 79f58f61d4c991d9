package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Deterministic(t *testing.T) {
	bindings := map[string]any{"a_title_0": "Index", "e0_type_0": "wikilink"}

	first, err := Fingerprint("sqlite", "SELECT 1", bindings)
	require.NoError(t, err)
	second, err := Fingerprint("sqlite", "SELECT 1", map[string]any{"e0_type_0": "wikilink", "a_title_0": "Index"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprint_SensitiveToEveryInput(t *testing.T) {
	base := MustFingerprint("sqlite", "SELECT 1", map[string]any{"k": "v"})

	assert.NotEqual(t, base, MustFingerprint("surrealdb", "SELECT 1", map[string]any{"k": "v"}))
	assert.NotEqual(t, base, MustFingerprint("sqlite", "SELECT 2", map[string]any{"k": "v"}))
	assert.NotEqual(t, base, MustFingerprint("sqlite", "SELECT 1", map[string]any{"k": "w"}))
}

func TestFingerprint_NilBindingsEqualEmpty(t *testing.T) {
	assert.Equal(t,
		MustFingerprint("sqlite", "SELECT 1", nil),
		MustFingerprint("sqlite", "SELECT 1", map[string]any{}))
}
