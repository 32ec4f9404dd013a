// internal/config/types.go
package config

import (
	"encoding/json"
	"maps"
	"slices"

	"pagepack/internal/report"
)

// Mode selects the overlay merged onto the base configuration.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// BuildConfig is the assembled description of one build. It is plain data:
// the builder and the dev server interpret it.
type BuildConfig struct {
	Mode         Mode              `yaml:"mode,omitempty" json:"mode,omitempty"`
	Context      string            `yaml:"context,omitempty" json:"context,omitempty"`
	Entry        map[string]string `yaml:"entry,omitempty" json:"entry,omitempty"`
	Output       Output            `yaml:"output" json:"output"`
	Optimization Optimization      `yaml:"optimization" json:"optimization"`
	Performance  Performance       `yaml:"performance" json:"performance"`
	Stats        Stats             `yaml:"stats" json:"stats"`
	Module       Module            `yaml:"module" json:"module"`
	Plugins      Plugins           `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	Devtool      string            `yaml:"devtool,omitempty" json:"devtool,omitempty"`
	DevServer    *DevServer        `yaml:"devServer,omitempty" json:"devServer,omitempty"`
}

type Output struct {
	Path       string `yaml:"path,omitempty" json:"path,omitempty"`
	Filename   string `yaml:"filename,omitempty" json:"filename,omitempty"`
	PublicPath string `yaml:"publicPath,omitempty" json:"publicPath,omitempty"`
}

type Optimization struct {
	RuntimeChunk string      `yaml:"runtimeChunk,omitempty" json:"runtimeChunk,omitempty"`
	SplitChunks  SplitChunks `yaml:"splitChunks" json:"splitChunks"`
	Minimizer    []Minimizer `yaml:"minimizer,omitempty" json:"minimizer,omitempty"`
}

type SplitChunks struct {
	// Defaults keeps the built-in vendor/default groups.
	Defaults    bool                  `yaml:"defaults" json:"defaults"`
	CacheGroups map[string]CacheGroup `yaml:"cacheGroups,omitempty" json:"cacheGroups,omitempty"`
}

// CacheGroup moves modules shared by at least MinChunks chunks into a chunk called Name.
type CacheGroup struct {
	Test      string `yaml:"test" json:"test"`
	Chunks    string `yaml:"chunks" json:"chunks"`
	MinChunks int    `yaml:"minChunks" json:"minChunks"`
	Name      string `yaml:"name" json:"name"`
	Enforce   bool   `yaml:"enforce" json:"enforce"`
}

const (
	MinimizeScripts = "js"
	MinimizeStyles  = "css"
)

type Minimizer struct {
	Kind            string `yaml:"kind" json:"kind"`
	SourceMap       bool   `yaml:"sourceMap,omitempty" json:"sourceMap,omitempty"`
	ExtractComments bool   `yaml:"extractComments,omitempty" json:"extractComments,omitempty"`
}

type Performance struct {
	Hints bool `yaml:"hints" json:"hints"`
}

type Stats struct {
	Colors       bool `yaml:"colors" json:"colors"`
	Modules      bool `yaml:"modules" json:"modules"`
	Children     bool `yaml:"children" json:"children"`
	Chunks       bool `yaml:"chunks" json:"chunks"`
	ChunkModules bool `yaml:"chunkModules" json:"chunkModules"`
}

type Module struct {
	Rules []Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Rule applies a loader chain to files whose path matches Test. Loaders run
// in the order they are listed from the output side: the last loader sees the
// source first.
type Rule struct {
	Test    string   `yaml:"test" json:"test"`
	Exclude string   `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Enforce string   `yaml:"enforce,omitempty" json:"enforce,omitempty"`
	Use     []Loader `yaml:"use" json:"use"`
}

type Loader struct {
	Loader  string `yaml:"loader" json:"loader"`
	Options any    `yaml:"options,omitempty" json:"options,omitempty"`
}

const (
	LoaderTemplate     = "template"
	LoaderExtractCSS   = "extract-css"
	LoaderCSS          = "css"
	LoaderMediaQueries = "group-media-queries"
	LoaderPrefix       = "prefix"
	LoaderPreprocess   = "preprocess"
	LoaderLint         = "lint"
	LoaderScript       = "esbuild"
)

type TemplateOptions struct {
	Namespaces map[string]string `yaml:"namespaces" json:"namespaces"`
	Helpers    []string          `yaml:"helpers,omitempty" json:"helpers,omitempty"`
}

type CSSOptions struct {
	SourceMap bool `yaml:"sourceMap" json:"sourceMap"`
	URL       bool `yaml:"url" json:"url"`
}

type SourceMapOptions struct {
	SourceMap bool `yaml:"sourceMap" json:"sourceMap"`
}

type PrefixOptions struct {
	SourceMap bool     `yaml:"sourceMap" json:"sourceMap"`
	Browsers  []string `yaml:"browsers" json:"browsers"`
}

type LintOptions struct {
	Formatter   string `yaml:"formatter,omitempty" json:"formatter,omitempty"`
	EmitWarning bool   `yaml:"emitWarning" json:"emitWarning"`
}

type ScriptOptions struct {
	Target string `yaml:"target" json:"target"`
}

const DevtoolInlineSourceMap = "inline-source-map"

// DevServer configures the local HTTP server used in development mode.
type DevServer struct {
	Host               string `yaml:"host" json:"host"`
	Port               int    `yaml:"port" json:"port"`
	DisableHostCheck   bool   `yaml:"disableHostCheck" json:"disableHostCheck"`
	ContentBase        string `yaml:"contentBase" json:"contentBase"`
	Stats              string `yaml:"stats,omitempty" json:"stats,omitempty"`
	Overlay            bool   `yaml:"overlay" json:"overlay"`
	Quiet              bool   `yaml:"quiet" json:"quiet"`
	HistoryAPIFallback bool   `yaml:"historyApiFallback" json:"historyApiFallback"`
	LiveReload         bool   `yaml:"liveReload" json:"liveReload"`
}

const StatsErrorsOnly = "errors-only"

// Plugin is an output-producing step of the build.
type Plugin interface {
	PluginName() string
}

// Plugins keeps its order: base plugins first, overlay plugins after.
type Plugins []Plugin

type HTMLPage struct {
	Filename string   `yaml:"filename" json:"filename"`
	Template string   `yaml:"template" json:"template"`
	Engine   string   `yaml:"engine" json:"engine"`
	Chunks   []string `yaml:"chunks" json:"chunks"`
	Inject   bool     `yaml:"inject" json:"inject"`
}

type Clean struct {
	Include []string `yaml:"include" json:"include"`
}

type CopyPattern struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

type Copy struct {
	Patterns []CopyPattern `yaml:"patterns" json:"patterns"`
}

type ExtractCSS struct {
	Filename string `yaml:"filename" json:"filename"`
}

type FriendlyErrors struct {
	ClearConsole    bool                `yaml:"clearConsole" json:"clearConsole"`
	SuccessMessages []string            `yaml:"successMessages,omitempty" json:"successMessages,omitempty"`
	OnErrors        report.ErrorHandler `yaml:"-" json:"-"`
}

type ProgressBar struct{}

func (HTMLPage) PluginName() string       { return "html-page" }
func (Clean) PluginName() string          { return "clean" }
func (Copy) PluginName() string           { return "copy" }
func (ExtractCSS) PluginName() string     { return "extract-css" }
func (FriendlyErrors) PluginName() string { return "friendly-errors" }
func (ProgressBar) PluginName() string    { return "progress-bar" }

// MarshalYAML tags every plugin with its name.
func (p Plugins) MarshalYAML() (interface{}, error) {
	return p.named(), nil
}

func (p Plugins) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.named())
}

func (p Plugins) named() []map[string]Plugin {
	out := make([]map[string]Plugin, 0, len(p))
	for _, plugin := range p {
		out = append(out, map[string]Plugin{plugin.PluginName(): plugin})
	}
	return out
}

// Find returns the first plugin of type T.
func Find[T Plugin](plugins Plugins) (T, bool) {
	for _, p := range plugins {
		if t, ok := p.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// FindAll returns every plugin of type T in order.
func FindAll[T Plugin](plugins Plugins) []T {
	var out []T
	for _, p := range plugins {
		if t, ok := p.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Pages returns the HTML page rules in plugin order.
func (c BuildConfig) Pages() []HTMLPage {
	return FindAll[HTMLPage](c.Plugins)
}

// Loader returns the first rule that uses the named loader, together with
// that loader's entry.
func (c BuildConfig) Loader(name string) (Rule, Loader, bool) {
	for _, rule := range c.Module.Rules {
		for _, l := range rule.Use {
			if l.Loader == name {
				return rule, l, true
			}
		}
	}
	return Rule{}, Loader{}, false
}

// TemplateRules returns every rule driven by the template loader.
func (c BuildConfig) TemplateRules() []Rule {
	var rules []Rule
	for _, rule := range c.Module.Rules {
		for _, l := range rule.Use {
			if l.Loader == LoaderTemplate {
				rules = append(rules, rule)
				break
			}
		}
	}
	return rules
}

// Clone copies every container so merging into the clone leaves c untouched.
func (c BuildConfig) Clone() BuildConfig {
	out := c
	out.Entry = maps.Clone(c.Entry)
	out.Optimization.Minimizer = slices.Clone(c.Optimization.Minimizer)
	out.Optimization.SplitChunks.CacheGroups = maps.Clone(c.Optimization.SplitChunks.CacheGroups)
	out.Module.Rules = slices.Clone(c.Module.Rules)
	out.Plugins = slices.Clone(c.Plugins)
	if c.DevServer != nil {
		ds := *c.DevServer
		out.DevServer = &ds
	}
	return out
}
