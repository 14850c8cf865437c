package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapcraft-io/shift/internal/history"
)

// run executes the CLI with HOME pointed at home and returns stdout
func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("SHIFT_PROJECT", "")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCommand_EnvOverridesExplicitFile(t *testing.T) {
	home := t.TempDir()
	file := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server: https://file:8443\noc: /opt/oc\n"), 0600))
	t.Setenv("SHIFT_SERVER", "https://env:8443")

	out, err := run(t, home, "config", "--config", file)
	require.NoError(t, err)
	assert.Contains(t, out, "server: https://env:8443")
	assert.Contains(t, out, "oc: /opt/oc")

	out, err = run(t, home, "config", "--config", file, "--server", "https://flag:8443")
	require.NoError(t, err)
	assert.Contains(t, out, "server: https://flag:8443")
}

func TestConfigCommand_MissingExplicitFile(t *testing.T) {
	_, err := run(t, t.TempDir(), "config", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigCommand_SaveOmitsToken(t *testing.T) {
	home := t.TempDir()
	_, err := run(t, home, "config", "--save", "--server", "https://api:8443", "--token", "secret-token")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".shift", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://api:8443")
	assert.NotContains(t, string(data), "secret-token")
}

func seedHistory(t *testing.T, home string) {
	t.Helper()
	h, err := history.NewHistory(100, filepath.Join(home, ".shift", "history.json"))
	require.NoError(t, err)
	h.Add("scale dc web --replicas=3", true, "https://a:8443", "demo")
	h.Add("rollout latest dc/web", false, "https://a:8443", "demo")
	h.Add("delete project scratch", true, "https://b:8443", "")
	require.NoError(t, h.Save())
}

func TestHistoryCommand(t *testing.T) {
	home := t.TempDir()
	seedHistory(t, home)

	out, err := run(t, home, "history", "--all-servers")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"))

	out, err = run(t, home, "history", "--server", "https://a:8443", "-p", "demo", "--ok")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "scale dc web --replicas=3")

	out, err = run(t, home, "history", "--all-servers", "--search", "web")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.NotContains(t, out, "scratch")
}

func TestHistoryCommand_DeleteAndClear(t *testing.T) {
	home := t.TempDir()
	seedHistory(t, home)

	_, err := run(t, home, "history", "delete", "0")
	require.NoError(t, err)
	out, err := run(t, home, "history", "--all-servers")
	require.NoError(t, err)
	assert.NotContains(t, out, "scratch")
	assert.Equal(t, 2, strings.Count(out, "\n"))

	_, err = run(t, home, "history", "delete", "7")
	assert.Error(t, err)

	_, err = run(t, home, "history", "clear")
	require.NoError(t, err)
	out, err = run(t, home, "history", "--all-servers")
	require.NoError(t, err)
	assert.Empty(t, out)
}
