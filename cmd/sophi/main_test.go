package main

import (
	"bytes"
	"testing"

	"github.com/GriffinCanCode/SophiChat/client/internal/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sophi dev")
}

func TestLogoutClearsStoredToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOPHI_DATA_DIR", dir)

	store, err := credentials.OpenSQLite(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put("tok"))
	require.NoError(t, store.Close())

	out, err := execute(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	store, err = credentials.OpenSQLite(dir)
	require.NoError(t, err)
	defer store.Close()
	_, ok, err := store.Get()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfigFileErrors(t *testing.T) {
	_, err := execute(t, "--config", "/nonexistent/sophi.yaml", "logout")
	assert.Error(t, err)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	opts := &rootOptions{ephemeral: true}
	t.Setenv("SOPHI_WS_URL", "ftp://nowhere")
	require.NoError(t, opts.load())

	_, err := newClient(opts.cfg, opts.logger, "")
	assert.Error(t, err)
}

func TestNewClientEphemeral(t *testing.T) {
	opts := &rootOptions{ephemeral: true}
	require.NoError(t, opts.load())

	c, err := newClient(opts.cfg, opts.logger, "")
	require.NoError(t, err)
	defer c.close()
	_, ok := c.store.(*credentials.MemoryStore)
	assert.True(t, ok)
}
