package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagepack/internal/config"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "site")
	out, _, err := run(t, "new", dir, "--title", "Shop")
	require.NoError(t, err)
	require.Contains(t, out, "Project scaffolded")
	return filepath.Join(dir, config.DefaultProjectFile)
}

func TestConfigCommand(t *testing.T) {
	project := newProject(t)

	out, _, err := run(t, "config", "--project", project, "--mode", "production", "--format", "json")
	require.NoError(t, err)

	var cfg struct {
		Mode   string `json:"mode"`
		Output struct {
			PublicPath string `json:"publicPath"`
		} `json:"output"`
		DevServer *struct{} `json:"devServer"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "production", cfg.Mode)
	assert.Equal(t, "/", cfg.Output.PublicPath)
	assert.Nil(t, cfg.DevServer)

	out, _, err = run(t, "config", "--project", project, "--mode", "development")
	require.NoError(t, err)
	assert.Contains(t, out, "mode: development")
	assert.Contains(t, out, "port: 8081")
}

func TestConfigModeFromEnvironment(t *testing.T) {
	project := newProject(t)
	t.Setenv("PAGEPACK_MODE", "development")

	out, _, err := run(t, "config", "--project", project, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"mode": "development"`)

	// An explicit flag wins over the environment.
	out, _, err = run(t, "config", "--project", project, "--mode", "production", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"mode": "production"`)
}

func TestConfigRejectsUnknownModeAndFormat(t *testing.T) {
	project := newProject(t)

	_, _, err := run(t, "config", "--project", project, "--mode", "staging")
	assert.ErrorIs(t, err, config.ErrUnknownMode)

	_, _, err = run(t, "config", "--project", project, "--format", "toml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestBuildCommand(t *testing.T) {
	project := newProject(t)
	build := filepath.Join(filepath.Dir(project), "dist")

	_, errOut, err := run(t, "build", "--project", project, "--mode", "production", "--notify=false")
	require.NoError(t, err, errOut)

	assert.FileExists(t, filepath.Join(build, "index.html"))
	assert.FileExists(t, filepath.Join(build, "about.html"))
	assert.FileExists(t, filepath.Join(build, "js", "main.bundle.js"))
	assert.FileExists(t, filepath.Join(build, "css", "main.css"))

	index, err := os.ReadFile(filepath.Join(build, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "/css/main.css")
	assert.Contains(t, string(index), "Shop")
}

func TestLintCommand(t *testing.T) {
	project := newProject(t)
	script := filepath.Join(filepath.Dir(project), "src", "js", "debug.js")
	require.NoError(t, os.WriteFile(script, []byte("debugger;"), 0644))

	out, _, err := run(t, "lint", "--project", project)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 lint errors")
	assert.Contains(t, out, "no-debugger")
	assert.Contains(t, out, "eol-last")

	// Development relaxes the debugger rule to a warning.
	t.Setenv("PAGEPACK_ENV", "development")
	_, _, err = run(t, "lint", "--project", project)
	assert.ErrorContains(t, err, "1 lint errors")
}

func TestViewCommand(t *testing.T) {
	project := newProject(t)

	out, _, err := run(t, "view", "Opening Hours", "--project", project)
	require.NoError(t, err)
	assert.Contains(t, out, "opening-hours.md")
	assert.FileExists(t, filepath.Join(filepath.Dir(project), "src", "templates", "views", "opening-hours.md"))
}

func TestNewCommandRequiresDirectory(t *testing.T) {
	_, _, err := run(t, "new")
	assert.Error(t, err)
}
