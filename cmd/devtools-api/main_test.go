package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), ".env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "devtools-api dev")
}

func TestKeysCheck(t *testing.T) {
	t.Setenv("API_KEYS", "alpha,beta")

	out, err := run(t, "keys", "check", "beta")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	out, err = run(t, "keys", "check", "gamma")
	assert.ErrorIs(t, err, errInvalidKey)
	assert.Contains(t, out, "invalid (2 keys configured)")
}

func TestKeysCount(t *testing.T) {
	t.Setenv("API_KEYS", "a,b,a")

	out, err := run(t, "keys", "count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestServe_BadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT", "0")

	_, err := run(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT must be > 0")
}

func TestStats_ReadsRedisTotals(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.HSet("admission:stats:total", "allowed", "7", "rate_limited", "2")
	t.Setenv("RATE_STATS_REDIS_ADDR", mr.Addr())

	out, err := run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed          7")
	assert.Contains(t, out, "unauthenticated  0")
	assert.Contains(t, out, "rate_limited     2")
}

func TestStats_RequiresRedis(t *testing.T) {
	_, err := run(t, "stats")
	require.Error(t, err)
}
