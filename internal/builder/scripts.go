// internal/builder/scripts.go
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"pagepack/internal/config"
	"pagepack/internal/report"
	"pagepack/internal/util"
)

// BuildMetadata is the part of the esbuild metafile the builder reads.
type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
	Bytes      int          `json:"bytes"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external"`
}

// URLs in stylesheets are not resolved; images and fonts are copied as is.
var externalAssets = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.webp", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.eot", "*.otf",
}

var scriptTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// bundleScripts bundles every entry with esbuild, splits code shared between
// entries into chunks and records which files each entry needs. Stylesheets
// are held back for the styles stage.
func (b *Builder) bundleScripts(_ context.Context, stats *report.Stats) error {
	if len(b.cfg.Entry) == 0 {
		return nil
	}

	target := api.ES2017
	if _, loader, ok := b.cfg.Loader(config.LoaderScript); ok {
		if opts, ok := loader.Options.(config.ScriptOptions); ok && opts.Target != "" {
			t, known := scriptTargets[strings.ToLower(opts.Target)]
			if !known {
				return fmt.Errorf("unknown script target %q", opts.Target)
			}
			target = t
		}
	}

	names := make([]string, 0, len(b.cfg.Entry))
	for name := range b.cfg.Entry {
		names = append(names, name)
	}
	slices.Sort(names)

	entries := make([]api.EntryPoint, 0, len(names))
	for _, name := range names {
		input, err := filepath.Abs(b.cfg.Entry[name])
		if err != nil {
			return err
		}
		entries = append(entries, api.EntryPoint{
			InputPath:  input,
			OutputPath: strings.TrimSuffix(b.entryFile(name), ".js"),
		})
	}

	minify := b.production()
	_, extractComments := b.minimizer(config.MinimizeScripts)

	b.log.Info().Strs("entries", names).Msg("bundling scripts")

	result := api.Build(api.BuildOptions{
		EntryPointsAdvanced: entries,
		AbsWorkingDir:       b.outDir,
		Outdir:              b.outDir,
		EntryNames:          "[dir]/[name]",
		ChunkNames:          b.chunkNames(),
		Bundle:              true,
		Splitting:           true,
		Write:               false,
		Format:              api.FormatESModule,
		Platform:            api.PlatformBrowser,
		Target:              target,
		External:            externalAssets,
		MinifyWhitespace:    minify,
		MinifyIdentifiers:   minify,
		MinifySyntax:        minify,
		TreeShaking:         api.TreeShakingTrue,
		Sourcemap:           util.Cond(b.cfg.Devtool == config.DevtoolInlineSourceMap, api.SourceMapInline, api.SourceMapNone),
		LegalComments:       util.Cond(extractComments, api.LegalCommentsExternal, api.LegalCommentsDefault),
		Define:              map[string]string{"process.env.NODE_ENV": fmt.Sprintf("%q", b.cfg.Mode)},
		Metafile:            true,
		LogLevel:            api.LogLevelSilent,
	})

	for _, msg := range result.Warnings {
		stats.AddWarning(esbuildError("ModuleWarning", msg))
	}
	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			stats.AddError(esbuildError("ModuleBuildError", msg))
		}
		return nil
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return fmt.Errorf("failed to read esbuild metafile: %w", err)
	}
	styleNames := b.collectChunks(names, metadata)

	for _, file := range result.OutputFiles {
		rel, err := filepath.Rel(b.outDir, file.Path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case strings.HasSuffix(rel, ".css.map"):
			continue
		case strings.HasSuffix(rel, ".css"):
			dest := rel
			if name, ok := styleNames[rel]; ok {
				dest = b.styleFile(name, rel)
			}
			b.styles = append(b.styles, pendingStyle{path: dest, contents: file.Contents})
		default:
			if err := b.writeAsset(stats, rel, file.Contents); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectChunks fills b.chunks from the metafile and returns the chunk name
// of every stylesheet esbuild emitted for an entry.
func (b *Builder) collectChunks(names []string, metadata BuildMetadata) map[string]string {
	styleNames := make(map[string]string)
	for _, name := range names {
		key := b.entryFile(name)
		info, ok := metadata.Outputs[key]
		if !ok {
			b.log.Warn().Str("entry", name).Str("output", key).Msg("entry output missing from metafile")
			continue
		}

		files := chunkFiles{Scripts: []string{key}}
		visited := map[string]bool{key: true}
		addDependencies(metadata, info, &files.Scripts, visited)

		bundle := info.CSSBundle
		if bundle == "" {
			sibling := strings.TrimSuffix(key, ".js") + ".css"
			if _, ok := metadata.Outputs[sibling]; ok {
				bundle = sibling
			}
		}
		if bundle != "" {
			styleNames[bundle] = name
			files.Styles = append(files.Styles, b.styleFile(name, bundle))
		}
		b.chunks[name] = files
	}
	return styleNames
}

func addDependencies(metadata BuildMetadata, output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.External || imp.Kind != "import-statement" || visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, imp.Path)
		if chunk, ok := metadata.Outputs[imp.Path]; ok {
			addDependencies(metadata, chunk, scripts, visited)
		}
	}
}

// entryFile is the build-relative path of an entry's script.
func (b *Builder) entryFile(name string) string {
	filename := b.cfg.Output.Filename
	if filename == "" {
		filename = config.ScriptFilename
	}
	return strings.ReplaceAll(filename, "[name]", name)
}

// styleFile is the build-relative path of an entry's stylesheet. Without an
// ExtractCSS plugin the stylesheet stays next to its script.
func (b *Builder) styleFile(name, fallback string) string {
	extract, ok := config.Find[config.ExtractCSS](b.cfg.Plugins)
	if !ok || extract.Filename == "" {
		return fallback
	}
	return strings.ReplaceAll(extract.Filename, "[name]", name)
}

// chunkNames names shared chunks after the first enforced cache group.
func (b *Builder) chunkNames() string {
	dir := path.Dir(b.entryFile("x"))
	name := "chunk"
	groups := b.cfg.Optimization.SplitChunks.CacheGroups
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if g := groups[key]; g.Enforce && g.Name != "" {
			name = g.Name
			break
		}
	}
	return path.Join(dir, name+"-[hash]")
}

func esbuildError(name string, msg api.Message) report.BuildError {
	e := report.BuildError{Name: name, Message: msg.Text}
	if msg.Location != nil {
		e.File = msg.Location.File
		e.Line = msg.Location.Line
	}
	return e
}
