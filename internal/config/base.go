// internal/config/base.go
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
)

// Fixed shape of every build.
const (
	MainChunk      = "main"
	ScriptFilename = "js/[name].bundle.js"
	StyleFilename  = "css/[name].css"
	ScriptTarget   = "es2017"
)

// Browsers are the vendor-prefixing targets of the style chain.
var Browsers = []string{
	"ie >= 8",
	"last 2 versions",
	"Android >= 4",
	"Safari >= 6",
}

// Base builds the configuration shared by every mode. It lists the views
// directory, so it fails when that directory cannot be read.
func Base(paths Paths) (BuildConfig, error) {
	pages, err := DiscoverPages(paths.Views())
	if err != nil {
		return BuildConfig{}, fmt.Errorf("failed to discover pages in %s: %w", paths.Views(), err)
	}

	config := BuildConfig{
		Context: paths.Source,
		Entry: map[string]string{
			MainChunk: filepath.Join(paths.Source, "js", "main.js"),
		},
		Output: Output{
			Path:     paths.Build,
			Filename: ScriptFilename,
		},
		Optimization: Optimization{
			RuntimeChunk: MainChunk,
			SplitChunks: SplitChunks{
				Defaults: false,
				CacheGroups: map[string]CacheGroup{
					MainChunk: {
						Test:      `\.js$`,
						Chunks:    "async",
						MinChunks: 2,
						Name:      MainChunk,
						Enforce:   true,
					},
				},
			},
			Minimizer: []Minimizer{
				{Kind: MinimizeStyles},
				{Kind: MinimizeScripts, SourceMap: true, ExtractComments: true},
			},
		},
		Performance: Performance{Hints: false},
		Stats: Stats{
			Colors:       true,
			Modules:      false,
			Children:     false,
			Chunks:       false,
			ChunkModules: false,
		},
		Module: Module{Rules: baseRules(paths, pages)},
	}

	config.Plugins = append(config.Plugins, FriendlyErrors{ClearConsole: true})
	config.Plugins = append(config.Plugins, htmlPages(paths, pages)...)
	config.Plugins = append(config.Plugins,
		Clean{Include: []string{filepath.Base(paths.Build)}},
		Copy{Patterns: []CopyPattern{
			{From: "./images", To: "images"},
			{From: "./fonts", To: "fonts"},
		}},
		ExtractCSS{Filename: StyleFilename},
	)
	return config, nil
}

func baseRules(paths Paths, pages []Page) []Rule {
	var rules []Rule

	seen := make(map[string]bool)
	for _, page := range pages {
		if page.Extension == "" || seen[page.Extension] {
			continue
		}
		seen[page.Extension] = true
		rules = append(rules, Rule{
			Test: `\.` + regexp.QuoteMeta(page.Extension) + `$`,
			Use: []Loader{{
				Loader: LoaderTemplate,
				Options: TemplateOptions{
					Namespaces: map[string]string{
						"layouts":  paths.Layouts(),
						"includes": paths.Includes(),
					},
					Helpers: []string{"asset", "page"},
				},
			}},
		})
	}

	rules = append(rules,
		Rule{
			Test: `\.css$`,
			Use: []Loader{
				{Loader: LoaderExtractCSS},
				{Loader: LoaderCSS, Options: CSSOptions{SourceMap: false, URL: false}},
				{Loader: LoaderMediaQueries, Options: SourceMapOptions{}},
				{Loader: LoaderPrefix, Options: PrefixOptions{Browsers: Browsers}},
				{Loader: LoaderPreprocess, Options: SourceMapOptions{}},
			},
		},
		Rule{
			Enforce: "pre",
			Test:    `\.(js|vue)$`,
			Exclude: `node_modules`,
			Use:     []Loader{{Loader: LoaderLint, Options: LintOptions{Formatter: "friendly", EmitWarning: true}}},
		},
		Rule{
			Test:    `\.js$`,
			Exclude: `node_modules`,
			Use:     []Loader{{Loader: LoaderScript, Options: ScriptOptions{Target: ScriptTarget}}},
		},
	)
	return rules
}

func htmlPages(paths Paths, pages []Page) Plugins {
	plugins := make(Plugins, 0, len(pages))
	for _, page := range pages {
		plugins = append(plugins, HTMLPage{
			Filename: page.Name + ".html",
			Template: filepath.Join(paths.Views(), page.FileName()),
			Engine:   page.Extension,
			Chunks:   []string{page.Name, MainChunk},
			Inject:   true,
		})
	}
	return plugins
}

// withStyleSourceMaps turns on source maps for every loader of the style
// chain. The rules are copied; the input is left as it was.
func withStyleSourceMaps(rules []Rule) []Rule {
	out := slices.Clone(rules)
	for i, rule := range out {
		use := slices.Clone(rule.Use)
		for j, l := range use {
			switch opts := l.Options.(type) {
			case CSSOptions:
				opts.SourceMap = true
				use[j].Options = opts
			case SourceMapOptions:
				opts.SourceMap = true
				use[j].Options = opts
			case PrefixOptions:
				opts.SourceMap = true
				use[j].Options = opts
			}
		}
		out[i].Use = use
	}
	return out
}
