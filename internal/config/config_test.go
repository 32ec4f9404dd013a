package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pagepack/internal/report"
)

func newProject(t *testing.T, views ...string) Paths {
	t.Helper()
	paths := DefaultPaths(t.TempDir())
	require.NoError(t, os.MkdirAll(paths.Views(), 0755))
	for _, name := range views {
		require.NoError(t, os.WriteFile(filepath.Join(paths.Views(), name), []byte("<p>"+name+"</p>"), 0644))
	}
	return paths
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		file string
		want Page
	}{
		{"home.twig", Page{Name: "home", Extension: "twig"}},
		{"about.html", Page{Name: "about", Extension: "html"}},
		{"README", Page{Name: "README"}},
		{"home.en.html", Page{Name: "home", Extension: "en.html"}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got := ParsePage(tt.file)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.file, got.FileName())
		})
	}
}

func TestDiscoverPages(t *testing.T) {
	paths := newProject(t, "home.twig", "about.twig", ".gitkeep")

	pages, err := DiscoverPages(paths.Views())
	require.NoError(t, err)
	assert.ElementsMatch(t, []Page{
		{Name: "home", Extension: "twig"},
		{Name: "about", Extension: "twig"},
	}, pages)
}

func TestDiscoverPagesMissingDirectory(t *testing.T) {
	_, err := DiscoverPages(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestBasePageRules(t *testing.T) {
	paths := newProject(t, "home.twig", "about.twig")

	cfg, err := Base(paths)
	require.NoError(t, err)

	pages := cfg.Pages()
	require.Len(t, pages, 2)

	byName := map[string]HTMLPage{}
	for _, p := range pages {
		byName[p.Filename] = p
	}
	require.Contains(t, byName, "home.html")
	require.Contains(t, byName, "about.html")

	assert.Equal(t, []string{"home", "main"}, byName["home.html"].Chunks)
	assert.Equal(t, []string{"about", "main"}, byName["about.html"].Chunks)
	assert.Equal(t, filepath.Join(paths.Views(), "home.twig"), byName["home.html"].Template)
	assert.True(t, byName["home.html"].Inject)
	assert.Equal(t, "twig", byName["about.html"].Engine)
}

func TestBaseShape(t *testing.T) {
	paths := newProject(t, "index.html", "blog.md")

	cfg, err := Base(paths)
	require.NoError(t, err)

	assert.Equal(t, paths.Source, cfg.Context)
	assert.Equal(t, map[string]string{"main": filepath.Join(paths.Source, "js", "main.js")}, cfg.Entry)
	assert.Equal(t, paths.Build, cfg.Output.Path)
	assert.Equal(t, "js/[name].bundle.js", cfg.Output.Filename)
	assert.Empty(t, cfg.Output.PublicPath)

	group := cfg.Optimization.SplitChunks.CacheGroups["main"]
	assert.Equal(t, 2, group.MinChunks)
	assert.Equal(t, "main", group.Name)
	assert.False(t, cfg.Optimization.SplitChunks.Defaults)

	templates := map[string]Rule{}
	for _, rule := range cfg.TemplateRules() {
		templates[rule.Test] = rule
	}
	require.Len(t, templates, 2)
	require.Contains(t, templates, `\.md$`)
	require.Contains(t, templates, `\.html$`)
	opts, ok := templates[`\.html$`].Use[0].Options.(TemplateOptions)
	require.True(t, ok)
	assert.Equal(t, paths.Layouts(), opts.Namespaces["layouts"])
	assert.Equal(t, paths.Includes(), opts.Namespaces["includes"])

	_, prefix, ok := cfg.Loader(LoaderPrefix)
	require.True(t, ok)
	assert.Equal(t, Browsers, prefix.Options.(PrefixOptions).Browsers)

	rule, _, ok := cfg.Loader(LoaderLint)
	require.True(t, ok)
	assert.Equal(t, "pre", rule.Enforce)

	copyPlugin, ok := Find[Copy](cfg.Plugins)
	require.True(t, ok)
	assert.Equal(t, []CopyPattern{{From: "./images", To: "images"}, {From: "./fonts", To: "fonts"}}, copyPlugin.Patterns)

	_, ok = Find[ProgressBar](cfg.Plugins)
	assert.False(t, ok)
	assert.Nil(t, cfg.DevServer)
}

func TestAssembleProduction(t *testing.T) {
	paths := newProject(t, "home.twig")

	base, err := Base(paths)
	require.NoError(t, err)
	cfg, err := Assemble(ModeProduction, paths, AssembleOptions{})
	require.NoError(t, err)

	assert.Equal(t, ModeProduction, cfg.Mode)
	assert.Equal(t, "/", cfg.Output.PublicPath)
	assert.Equal(t, "js/[name].bundle.js", cfg.Output.Filename)

	_, ok := Find[ProgressBar](cfg.Plugins)
	assert.True(t, ok)
	assert.Len(t, cfg.Plugins, len(base.Plugins)+1)
	assert.Equal(t, ProgressBar{}, cfg.Plugins[len(cfg.Plugins)-1])
	assert.Nil(t, cfg.DevServer)
	assert.Empty(t, cfg.Devtool)

	_, css, ok := cfg.Loader(LoaderCSS)
	require.True(t, ok)
	assert.False(t, css.Options.(CSSOptions).SourceMap)
}

func TestAssembleDevelopment(t *testing.T) {
	paths := newProject(t, "home.twig")

	var handled []report.BuildError
	handler := report.ErrorHandlerFunc(func(_ report.Severity, errs []report.BuildError) {
		handled = append(handled, errs...)
	})

	cfg, err := Assemble(ModeDevelopment, paths, AssembleOptions{OnErrors: handler})
	require.NoError(t, err)

	require.NotNil(t, cfg.DevServer)
	assert.Equal(t, DevPort, cfg.DevServer.Port)
	assert.Equal(t, 8081, cfg.DevServer.Port)
	assert.Equal(t, "0.0.0.0", cfg.DevServer.Host)
	assert.True(t, cfg.DevServer.HistoryAPIFallback)
	assert.True(t, cfg.DevServer.DisableHostCheck)
	assert.Equal(t, paths.Build, cfg.DevServer.ContentBase)
	assert.Equal(t, DevtoolInlineSourceMap, cfg.Devtool)
	assert.Empty(t, cfg.Output.PublicPath)

	rule, _, ok := cfg.Loader(LoaderCSS)
	require.True(t, ok)
	assert.Equal(t, CSSOptions{SourceMap: true, URL: false}, rule.Use[1].Options)
	assert.Equal(t, SourceMapOptions{SourceMap: true}, rule.Use[2].Options)
	assert.True(t, rule.Use[3].Options.(PrefixOptions).SourceMap)
	assert.Equal(t, SourceMapOptions{SourceMap: true}, rule.Use[4].Options)

	// The base rules are not shared with the development result.
	base, err := Base(paths)
	require.NoError(t, err)
	baseRule, _, _ := base.Loader(LoaderCSS)
	assert.False(t, baseRule.Use[1].Options.(CSSOptions).SourceMap)

	friendly := FindAll[FriendlyErrors](cfg.Plugins)
	require.Len(t, friendly, 2)
	assert.True(t, friendly[0].ClearConsole)
	assert.Equal(t, []string{"app is running http://localhost:8081"}, friendly[1].SuccessMessages)

	require.NotNil(t, friendly[1].OnErrors)
	friendly[1].OnErrors.HandleErrors(report.SeverityError, []report.BuildError{{Name: "SyntaxError"}})
	assert.Len(t, handled, 1)
}

func TestAssembleUnknownMode(t *testing.T) {
	paths := newProject(t, "home.twig")

	for _, mode := range []Mode{"", "staging", "Production"} {
		cfg, err := Assemble(mode, paths, AssembleOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownMode))
		assert.Equal(t, BuildConfig{}, cfg)
	}
}

func TestAssembleMissingViews(t *testing.T) {
	paths := DefaultPaths(t.TempDir())

	_, err := Assemble(ModeProduction, paths, AssembleOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("development")
	require.NoError(t, err)
	assert.Equal(t, ModeDevelopment, mode)

	_, err = ParseMode("test")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestMergeConcatenatesPlugins(t *testing.T) {
	base := BuildConfig{
		Output:  Output{Path: "dist", Filename: "a.js"},
		Entry:   map[string]string{"main": "main.js"},
		Plugins: Plugins{Clean{Include: []string{"dist"}}},
	}
	first := BuildConfig{
		Output:  Output{PublicPath: "/"},
		Plugins: Plugins{ProgressBar{}},
	}
	second := BuildConfig{
		Entry:   map[string]string{"admin": "admin.js"},
		Plugins: Plugins{ExtractCSS{Filename: "x.css"}, Copy{}},
	}

	merged, err := Merge(base, first, second)
	require.NoError(t, err)

	assert.Equal(t, Plugins{
		Clean{Include: []string{"dist"}},
		ProgressBar{},
		ExtractCSS{Filename: "x.css"},
		Copy{},
	}, merged.Plugins)
	assert.Equal(t, Output{Path: "dist", Filename: "a.js", PublicPath: "/"}, merged.Output)
	assert.Equal(t, map[string]string{"main": "main.js", "admin": "admin.js"}, merged.Entry)

	// Stepwise merging gives the same plugin order.
	step, err := Merge(base, first)
	require.NoError(t, err)
	step, err = Merge(step, second)
	require.NoError(t, err)
	assert.Equal(t, merged.Plugins, step.Plugins)

	// Inputs are left as they were.
	assert.Len(t, base.Plugins, 1)
	assert.Len(t, base.Entry, 1)
	assert.Empty(t, base.Output.PublicPath)
}

func TestMergeDoesNotShareDevServer(t *testing.T) {
	base := BuildConfig{DevServer: &DevServer{Port: 1}}
	merged, err := Merge(base, BuildConfig{DevServer: &DevServer{Port: 2}})
	require.NoError(t, err)

	assert.Equal(t, 2, merged.DevServer.Port)
	assert.Equal(t, 1, base.DevServer.Port)
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()

	project, err := LoadProject(filepath.Join(dir, DefaultProjectFile))
	require.NoError(t, err)
	assert.Equal(t, DefaultPaths(dir), project.Paths(dir))

	content := "title: Shop\nsource: web\nbuild: public\npublicPath: /static/\nentries:\n  admin: js/admin.js\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultProjectFile), []byte(content), 0644))

	project, err = LoadProject(filepath.Join(dir, DefaultProjectFile))
	require.NoError(t, err)
	assert.Equal(t, "Shop", project.Title)

	paths := project.Paths(dir)
	assert.Equal(t, filepath.Join(dir, "web"), paths.Source)
	assert.Equal(t, filepath.Join(dir, "public"), paths.Build)
	assert.Equal(t, "/static/", paths.URL)

	overlay := project.Overlay(paths)
	assert.Equal(t, filepath.Join(dir, "web", "js", "admin.js"), overlay.Entry["admin"])
}

func TestLoadProjectInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultProjectFile)
	require.NoError(t, os.WriteFile(path, []byte("title: [unterminated"), 0644))

	_, err := LoadProject(path)
	assert.Error(t, err)
}

func TestConfigMarshalsPluginNames(t *testing.T) {
	paths := newProject(t, "home.html")
	cfg, err := Assemble(ModeProduction, paths, AssembleOptions{})
	require.NoError(t, err)

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "html-page:")
	assert.Contains(t, out, "progress-bar:")
	assert.Contains(t, out, "publicPath: /")
}
