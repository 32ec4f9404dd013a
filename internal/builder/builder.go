// internal/builder/builder.go
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"pagepack/internal/config"
	"pagepack/internal/lint"
	"pagepack/internal/report"
)

var (
	// ErrBuildFailed is returned when a build finished with errors in its stats.
	ErrBuildFailed = errors.New("build failed")
	// ErrNoExtension marks a page file without a template extension.
	ErrNoExtension = errors.New("page has no template extension")
	// ErrUnknownEngine marks a page whose extension has no template engine.
	ErrUnknownEngine = errors.New("no template engine for extension")
)

// performanceLimit is the asset size above which a hint is emitted.
const performanceLimit = 250000

// Options tune a build beyond what the configuration describes.
type Options struct {
	Log   zerolog.Logger
	Lint  lint.Config
	Title string
	// Out receives the progress bar and the build summary.
	Out io.Writer
	// Unsafe disables HTML sanitizing of markdown pages.
	Unsafe bool
}

// Builder executes one assembled configuration.
type Builder struct {
	cfg  config.BuildConfig
	opts Options
	log  zerolog.Logger

	outDir string
	chunks map[string]chunkFiles
	styles []pendingStyle
}

// chunkFiles are the emitted files a chunk needs, relative to the build directory.
type chunkFiles struct {
	Scripts []string
	Styles  []string
}

func New(cfg config.BuildConfig, opts Options) *Builder {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	return &Builder{
		cfg:  cfg,
		opts: opts,
		log:  opts.Log.With().Str("mode", string(cfg.Mode)).Logger(),
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, stats *report.Stats) error
}

// Run performs the build. Diagnostics end up in the returned stats; the error
// is ErrBuildFailed when there are any, or the first infrastructure failure.
func (b *Builder) Run(ctx context.Context) (*report.Stats, error) {
	started := time.Now()
	stats := &report.Stats{}

	outDir, err := filepath.Abs(b.cfg.Output.Path)
	if err != nil {
		return stats, fmt.Errorf("failed to resolve output path: %w", err)
	}
	b.outDir = outDir
	b.chunks = make(map[string]chunkFiles)
	b.styles = nil

	stages := []stage{
		{"clean", b.clean},
		{"lint", b.lint},
		{"scripts", b.bundleScripts},
		{"styles", b.processStyles},
		{"pages", b.renderPages},
		{"assets", b.copyAssets},
		{"report", b.performanceHints},
	}

	var progress report.Progress
	if _, ok := config.Find[config.ProgressBar](b.cfg.Plugins); ok {
		progress = report.NewBar(b.opts.Out)
	}

	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if progress != nil {
			progress.Stage(i, len(stages), s.name)
		}
		b.log.Debug().Str("stage", s.name).Msg("running build stage")
		if err := s.run(ctx, stats); err != nil {
			return stats, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	stats.Duration = time.Since(started)
	if progress != nil {
		progress.Done(stats)
	}
	b.summarize(stats)

	if stats.HasErrors() {
		return stats, fmt.Errorf("%w with %d errors", ErrBuildFailed, len(stats.Errors))
	}
	return stats, nil
}

// clean empties the directories named by the Clean plugins. Names resolve
// next to the build directory.
func (b *Builder) clean(_ context.Context, _ *report.Stats) error {
	if err := os.MkdirAll(b.outDir, 0755); err != nil {
		return err
	}
	for _, plugin := range config.FindAll[config.Clean](b.cfg.Plugins) {
		for _, include := range plugin.Include {
			dir := filepath.Join(filepath.Dir(b.outDir), include)
			b.log.Debug().Str("dir", dir).Msg("cleaning destination directory")
			entries, err := os.ReadDir(dir)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// lint runs the pre-enforced lint rule over the source tree.
func (b *Builder) lint(_ context.Context, stats *report.Stats) error {
	rule, loader, ok := b.cfg.Loader(config.LoaderLint)
	if !ok || b.cfg.Context == "" {
		return nil
	}
	test, exclude, err := compileRule(rule)
	if err != nil {
		return err
	}
	opts, _ := loader.Options.(config.LintOptions)

	findings, err := b.opts.Lint.Dir(b.cfg.Context, test, exclude)
	if err != nil {
		stats.AddError(report.BuildError{Name: "LintError", Message: err.Error()})
		return nil
	}
	for _, f := range findings {
		if opts.EmitWarning || f.Severity == report.SeverityWarning {
			stats.AddWarning(f.BuildError())
		} else {
			stats.AddError(f.BuildError())
		}
	}
	return nil
}

func compileRule(rule config.Rule) (*regexp.Regexp, *regexp.Regexp, error) {
	test, err := regexp.Compile(rule.Test)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid rule test %q: %w", rule.Test, err)
	}
	if rule.Exclude == "" {
		return test, nil, nil
	}
	exclude, err := regexp.Compile(rule.Exclude)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid rule exclude %q: %w", rule.Exclude, err)
	}
	return test, exclude, nil
}

// performanceHints warns about every emitted asset above the size limit.
func (b *Builder) performanceHints(_ context.Context, stats *report.Stats) error {
	if !b.cfg.Performance.Hints {
		return nil
	}
	for _, asset := range stats.Assets {
		if asset.Size > performanceLimit {
			stats.AddWarning(report.BuildError{
				Name:    "AssetSizeLimitWarning",
				File:    asset.Path,
				Message: fmt.Sprintf("asset size %d bytes exceeds the recommended limit of %d bytes", asset.Size, performanceLimit),
			})
		}
	}
	return nil
}

// summarize hands the stats to the friendly-errors reporters. All
// FriendlyErrors plugins are folded into one so a build is reported once.
func (b *Builder) summarize(stats *report.Stats) {
	plugins := config.FindAll[config.FriendlyErrors](b.cfg.Plugins)
	if len(plugins) == 0 {
		for _, e := range stats.Errors {
			b.log.Error().Str("file", e.File).Msg(e.Error())
		}
		return
	}

	friendly := &report.Friendly{Out: b.opts.Out, Log: b.log}
	var handlers []report.ErrorHandler
	for _, p := range plugins {
		friendly.ClearConsole = friendly.ClearConsole || p.ClearConsole
		friendly.Messages = append(friendly.Messages, p.SuccessMessages...)
		if p.OnErrors != nil {
			handlers = append(handlers, p.OnErrors)
		}
	}
	if len(handlers) > 0 {
		friendly.OnErrors = report.ErrorHandlerFunc(func(severity report.Severity, errs []report.BuildError) {
			for _, h := range handlers {
				h.HandleErrors(severity, errs)
			}
		})
	}

	if b.cfg.Stats.Chunks {
		for _, asset := range stats.Assets {
			b.log.Info().Str("asset", asset.Path).Int("bytes", asset.Size).Msg("emitted")
		}
	}
	friendly.Report(stats)
}

// writeAsset writes data under the build directory and records it.
func (b *Builder) writeAsset(stats *report.Stats, rel string, data []byte) error {
	dest := filepath.Join(b.outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return err
	}
	stats.AddAsset(filepath.ToSlash(rel), len(data))
	return nil
}

func (b *Builder) production() bool {
	return b.cfg.Mode == config.ModeProduction
}

func (b *Builder) minimizer(kind string) (config.Minimizer, bool) {
	if !b.production() {
		return config.Minimizer{}, false
	}
	for _, m := range b.cfg.Optimization.Minimizer {
		if m.Kind == kind {
			return m, true
		}
	}
	return config.Minimizer{}, false
}
