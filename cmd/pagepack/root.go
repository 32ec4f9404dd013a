// cmd/pagepack/root.go
package main

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pagepack/internal/builder"
	"pagepack/internal/config"
	"pagepack/internal/lint"
	"pagepack/internal/logging"
	"pagepack/internal/notify"
	"pagepack/internal/report"
)

// app carries what every command shares. Settings resolve flag first, then
// PAGEPACK_* environment variables, then flag defaults.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}
	a.v.SetEnvPrefix("PAGEPACK")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "pagepack",
		Short: "Build multi-page static sites from templates, scripts and styles",
		Long: `pagepack turns every view under src/templates/views into an HTML page,
bundles src/js/main.js with the styles it imports and copies images and fonts
into the build directory.

  pagepack new mysite              Scaffold a project
  pagepack serve                   Develop with live reload
  pagepack build --mode production Build for deployment

Environment:
  PAGEPACK_MODE  default for --mode
  PAGEPACK_ENV   "development" relaxes lint rules and switches to console logs`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String("project", config.DefaultProjectFile, "path to the project file; its directory is the project root")
	pf.StringP("mode", "m", string(config.ModeProduction), "build mode (production or development)")
	pf.StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	pf.Bool("notify", true, "show a desktop notification when a development build fails")
	for _, name := range []string{"project", "mode", "log-level", "notify"} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		a.buildCmd(),
		a.serveCmd(),
		a.configCmd(),
		a.lintCmd(),
		a.newCmd(),
		a.viewCmd(),
	)
	return root
}

func (a *app) development() bool {
	return a.v.GetString("env") == string(config.ModeDevelopment)
}

func (a *app) logger() zerolog.Logger {
	return logging.New(a.errOut, a.development(), a.v.GetString("log-level"))
}

func (a *app) mode() (config.Mode, error) {
	return config.ParseMode(a.v.GetString("mode"))
}

type project struct {
	config.Project
	file  string
	root  string
	paths config.Paths
}

func (a *app) loadProject() (project, error) {
	file := a.v.GetString("project")
	p, err := config.LoadProject(file)
	if err != nil {
		return project{}, err
	}
	root := filepath.Dir(file)
	return project{Project: p, file: file, root: root, paths: p.Paths(root)}, nil
}

// assemble produces the configuration for mode with the project's own
// entries merged last.
func (a *app) assemble(mode config.Mode, p project, log zerolog.Logger) (config.BuildConfig, error) {
	opts := config.AssembleOptions{
		Extra: []config.BuildConfig{p.Overlay(p.paths)},
	}
	if a.v.GetBool("notify") {
		notifier := notify.NewErrorNotifier(notify.Desktop{AppName: "pagepack"}, p.paths.Build)
		notifier.Log = log
		opts.OnErrors = notifier
	}
	return config.Assemble(mode, p.paths, opts)
}

// build assembles and runs one build. Assembling every time picks up views
// added since the last build.
func (a *app) build(ctx context.Context, mode config.Mode, p project, log zerolog.Logger) (*report.Stats, error) {
	cfg, err := a.assemble(mode, p, log)
	if err != nil {
		return nil, err
	}
	b := builder.New(cfg, builder.Options{
		Log:   log,
		Lint:  lint.DefaultConfig(a.development()),
		Title: p.Title,
		Out:   a.errOut,
	})
	return b.Run(ctx)
}
