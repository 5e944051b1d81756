package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCredentials_Membership(t *testing.T) {
	s := NewStaticCredentials("alpha", " beta ", "", "alpha")

	assert.True(t, s.IsValid("alpha"))
	assert.True(t, s.IsValid("beta"))
	assert.False(t, s.IsValid("gamma"))
	assert.False(t, s.IsValid(""))
	assert.Equal(t, 2, s.Len())
}

func TestStaticCredentials_NilRejectsEverything(t *testing.T) {
	var s *StaticCredentials
	assert.False(t, s.IsValid("alpha"))
	assert.Equal(t, 0, s.Len())
}

func TestLoadCredentials_MergesInlineAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keys:\n  - from-file\n  - shared\n"), 0o600))

	s, err := LoadCredentials([]string{"inline", "shared"}, path)
	require.NoError(t, err)

	assert.True(t, s.IsValid("inline"))
	assert.True(t, s.IsValid("from-file"))
	assert.Equal(t, 3, s.Len())
}

func TestLoadCredentials_EmptyFailsClosed(t *testing.T) {
	s, err := LoadCredentials(nil, "")
	require.ErrorIs(t, err, ErrNoCredentials)
	require.NotNil(t, s)
	assert.False(t, s.IsValid("anything"))
}

func TestLoadCredentials_MissingFile(t *testing.T) {
	_, err := LoadCredentials(nil, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCredentials)
}

func TestLoadCredentials_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keys: [unclosed"), 0o600))

	_, err := LoadCredentials(nil, path)
	require.Error(t, err)
}
