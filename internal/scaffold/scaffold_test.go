package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagepack/internal/config"
)

func TestCreateNewProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")
	var out bytes.Buffer
	require.NoError(t, CreateNewProject(dir, "Shop", &out))
	assert.Contains(t, out.String(), "pagepack serve")

	project, err := config.LoadProject(filepath.Join(dir, config.DefaultProjectFile))
	require.NoError(t, err)
	assert.Equal(t, "Shop", project.Title)

	paths := project.Paths(dir)
	assert.FileExists(t, filepath.Join(paths.Source, "js", "main.js"))
	assert.FileExists(t, filepath.Join(paths.Source, "styles", "main.css"))
	assert.DirExists(t, filepath.Join(paths.Source, "images"))
	assert.DirExists(t, filepath.Join(paths.Source, "fonts"))
	assert.FileExists(t, filepath.Join(paths.Layouts(), "base.html"))
	assert.FileExists(t, filepath.Join(paths.Includes(), "header.html"))

	pages, err := config.DiscoverPages(paths.Views())
	require.NoError(t, err)
	assert.ElementsMatch(t, []config.Page{
		{Name: "index", Extension: "html"},
		{Name: "about", Extension: "md"},
	}, pages)

	_, err = config.Assemble(config.ModeProduction, paths, config.AssembleOptions{Extra: []config.BuildConfig{project.Overlay(paths)}})
	assert.NoError(t, err)
}

func TestCreateNewProjectRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultProjectFile), []byte("title: x\n"), 0644))

	err := CreateNewProject(dir, "", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrExists)
}

func TestCreateNewView(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, CreateNewProject(dir, "Shop", &bytes.Buffer{}))
	paths := config.DefaultPaths(dir)

	path, err := CreateNewView(dir, paths, "Opening Hours!")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.Views(), "opening-hours.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "title: Opening Hours!")
	assert.Contains(t, string(content), "layout: base.html")

	_, err = CreateNewView(dir, paths, "Opening hours")
	assert.ErrorIs(t, err, ErrExists)

	_, err = CreateNewView(dir, paths, "!!!")
	assert.Error(t, err)
}
