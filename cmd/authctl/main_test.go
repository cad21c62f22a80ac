package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRequiresDatabaseURL(t *testing.T) {
	_, err := runCommand(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestRejectsUnknownOutputFormat(t *testing.T) {
	_, err := runCommand(t, "--database-url", "postgres://localhost/x", "--out", "yaml", "client", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out")
}

func TestClientCreateValidatesProvider(t *testing.T) {
	_, err := runCommand(t, "--database-url", "postgres://localhost/x", "client", "create", "--provider", "admins")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--provider")

	_, err = runCommand(t, "--database-url", "postgres://localhost/x", "client", "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")
}

func TestClientListValidatesProvider(t *testing.T) {
	_, err := runCommand(t, "--database-url", "postgres://localhost/x", "client", "list", "--provider", "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--provider")
}
