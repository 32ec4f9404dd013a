// internal/config/overlay.go
package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"

	"pagepack/internal/report"
)

// Development server constants.
const (
	DevHost = "0.0.0.0"
	DevPort = 8081
)

// ErrUnknownMode is returned for any mode other than production or development.
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode validates a mode flag.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeProduction, ModeDevelopment:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w %q: want %q or %q", ErrUnknownMode, s, ModeProduction, ModeDevelopment)
}

// Production sets absolute asset URLs and reports build progress.
func Production(paths Paths) BuildConfig {
	return BuildConfig{
		Output:  Output{PublicPath: paths.URL},
		Plugins: Plugins{ProgressBar{}},
	}
}

// Development serves the build directory with live reload and inline source
// maps; Assemble also turns on source maps along the style chain. onErrors is
// called for failing builds; it may be nil.
func Development(paths Paths, onErrors report.ErrorHandler) BuildConfig {
	return BuildConfig{
		Devtool: DevtoolInlineSourceMap,
		DevServer: &DevServer{
			Host:               DevHost,
			DisableHostCheck:   true,
			ContentBase:        paths.Build,
			Stats:              StatsErrorsOnly,
			Port:               DevPort,
			Overlay:            true,
			Quiet:              true,
			HistoryAPIFallback: true,
			LiveReload:         true,
		},
		Plugins: Plugins{
			FriendlyErrors{
				SuccessMessages: []string{fmt.Sprintf("app is running http://localhost:%d", DevPort)},
				OnErrors:        onErrors,
			},
		},
	}
}

// Merge deep-merges overlays onto base in order. Scalars set in an overlay
// win, maps are merged key by key and slices are concatenated. base is not
// modified.
func Merge(base BuildConfig, overlays ...BuildConfig) (BuildConfig, error) {
	merged := base.Clone()
	for i, overlay := range overlays {
		if err := mergo.Merge(&merged, overlay.Clone(), mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return BuildConfig{}, fmt.Errorf("failed to merge overlay %d: %w", i, err)
		}
	}
	return merged, nil
}

// AssembleOptions carries what the caller supplies beyond the mode.
type AssembleOptions struct {
	// OnErrors receives failing builds in development mode.
	OnErrors report.ErrorHandler
	// Extra overlays are merged after the mode overlay.
	Extra []BuildConfig
}

// Assemble produces the configuration for one mode.
func Assemble(mode Mode, paths Paths, opts AssembleOptions) (BuildConfig, error) {
	var overlay BuildConfig
	switch mode {
	case ModeProduction:
		overlay = Production(paths)
	case ModeDevelopment:
		overlay = Development(paths, opts.OnErrors)
	default:
		return BuildConfig{}, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}

	base, err := Base(paths)
	if err != nil {
		return BuildConfig{}, err
	}

	config, err := Merge(base, append([]BuildConfig{overlay}, opts.Extra...)...)
	if err != nil {
		return BuildConfig{}, err
	}
	if mode == ModeDevelopment {
		config.Module.Rules = withStyleSourceMaps(config.Module.Rules)
	}
	config.Mode = mode
	return config, nil
}
