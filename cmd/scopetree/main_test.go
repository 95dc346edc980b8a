package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestDemo(t *testing.T) {
	out, _, err := execute(t, "demo")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)
	assert.Regexp(t, `^Grandpa\s+money\s+1000 \(bound\)$`, lines[0])
	assert.Regexp(t, `^Grandpa/Father/Cousin\s+money\s+2000 \(bound\)$`, lines[3])
	assert.Regexp(t, `^Grandpa/Aunti\s+asset\s+gold \(default\)$`, lines[7])
}

func TestDemo_DrawAndDebugLog(t *testing.T) {
	out, errOut, err := execute(t, "demo", "--draw", "--log-level", "debug")
	require.NoError(t, err)

	assert.Contains(t, out, "<money>")
	assert.Contains(t, out, "Cousin")
	assert.Contains(t, errOut, "visiting node")
	assert.Contains(t, errOut, "source=demo")
	assert.Contains(t, errOut, "channel=asset")
}

func TestRun_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	doc := `
channels:
  - {name: theme, type: string, default: light}
tree:
  name: App
  bind: {theme: dark}
  children:
    - name: Toolbar
      resolve: [theme]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, _, err := execute(t, "run", "--file", path)
	require.NoError(t, err)
	assert.Regexp(t, `App/Toolbar\s+theme\s+dark \(bound\)`, out)

	out, _, err = execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "dark")
}

func TestRun_Errors(t *testing.T) {
	_, _, err := execute(t, "run")
	assert.ErrorContains(t, err, "no tree document")

	_, _, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, _, err = execute(t, "demo", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "scopetree dev\n", out)
}
