// internal/builder/styles.go
package builder

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"pagepack/internal/config"
	"pagepack/internal/report"
)

var sourceMapComment = regexp.MustCompile(`/\*# sourceMappingURL=[^*]*\*/\s*$`)

var browserEngines = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios_saf": api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// pendingStyle is a stylesheet emitted by the script bundler, already moved
// to its final path.
type pendingStyle struct {
	path     string
	contents []byte
}

func (b *Builder) processStyles(ctx context.Context, stats *report.Stats) error {
	for _, style := range b.styles {
		if err := ctx.Err(); err != nil {
			return err
		}
		css, errs := b.processStyle(style.path, style.contents)
		if len(errs) > 0 {
			for _, e := range errs {
				stats.AddError(e)
			}
			continue
		}
		if err := b.writeAsset(stats, style.path, css); err != nil {
			return err
		}
	}
	return nil
}

// processStyle runs an extracted stylesheet through the style chain: nesting
// is lowered and vendor prefixes are added for the configured browsers, media
// queries are grouped and, in production, the result is minified. With css
// source maps on, the bundler's inline map is kept at the end; it describes
// the bundled stylesheet before prefixing and grouping.
func (b *Builder) processStyle(name string, src []byte) ([]byte, []report.BuildError) {
	sourceMap := bytes.TrimSpace(sourceMapComment.Find(src))
	src = sourceMapComment.ReplaceAll(src, nil)

	if _, loader, ok := b.cfg.Loader(config.LoaderPrefix); ok {
		opts, _ := loader.Options.(config.PrefixOptions)
		result := api.Transform(string(src), api.TransformOptions{
			Loader:     api.LoaderCSS,
			Engines:    engines(opts.Browsers),
			Sourcefile: name,
			LogLevel:   api.LogLevelSilent,
		})
		if len(result.Errors) > 0 {
			errs := make([]report.BuildError, 0, len(result.Errors))
			for _, msg := range result.Errors {
				errs = append(errs, esbuildError("CssSyntaxError", msg))
			}
			return nil, errs
		}
		src = result.Code
	}

	if _, _, ok := b.cfg.Loader(config.LoaderMediaQueries); ok {
		grouped, err := groupMediaQueries(src)
		if err != nil {
			return nil, []report.BuildError{{Name: "CssSyntaxError", File: name, Message: err.Error()}}
		}
		src = grouped
	}

	if _, ok := b.minimizer(config.MinimizeStyles); ok {
		minified, err := pageMinifier.Bytes("text/css", src)
		if err != nil {
			return nil, []report.BuildError{{Name: "CssMinimizerError", File: name, Message: err.Error()}}
		}
		src = minified
	}

	if _, loader, ok := b.cfg.Loader(config.LoaderCSS); ok && len(sourceMap) > 0 {
		if opts, _ := loader.Options.(config.CSSOptions); opts.SourceMap {
			src = append(append(src, '\n'), sourceMap...)
		}
	}
	return src, nil
}

// engines turns "name >= version" browser queries into esbuild engines.
// Other query forms, such as "last 2 versions", have no esbuild equivalent
// and are skipped.
func engines(queries []string) []api.Engine {
	var out []api.Engine
	for _, q := range queries {
		fields := strings.Fields(q)
		if len(fields) != 3 || fields[1] != ">=" {
			continue
		}
		name, ok := browserEngines[strings.ToLower(fields[0])]
		if !ok {
			continue
		}
		out = append(out, api.Engine{Name: name, Version: fields[2]})
	}
	return out
}

// groupMediaQueries moves the body of every top-level @media rule into one
// rule per distinct query, appended after the other rules in the order the
// queries first appear. Nested @media rules are left where they are.
func groupMediaQueries(src []byte) ([]byte, error) {
	p := css.NewParser(parse.NewInputBytes(src), false)

	var out bytes.Buffer
	groups := make(map[string]*bytes.Buffer)
	var order []string

	// current collects the body of the top-level @media rule being read and
	// depth counts the blocks opened inside it. nesting counts the blocks
	// open outside any group.
	var current *bytes.Buffer
	depth, nesting := 0, 0
	open := func() {
		if current != nil {
			depth++
		} else {
			nesting++
		}
	}
	closing := func() {
		if current != nil {
			depth--
		} else {
			nesting--
		}
	}

	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			if err := p.Err(); err != io.EOF {
				return nil, err
			}
			break
		}

		w := &out
		if current != nil {
			w = current
		}

		switch gt {
		case css.BeginAtRuleGrammar:
			if current == nil && nesting == 0 && string(data) == "@media" {
				query := strings.Join(strings.Fields(string(tokenText(p.Values()))), " ")
				group, ok := groups[query]
				if !ok {
					group = &bytes.Buffer{}
					groups[query] = group
					order = append(order, query)
				}
				current = group
				depth = 0
				continue
			}
			open()
			writeAtRule(w, data, p.Values())
			w.WriteByte('{')
		case css.EndAtRuleGrammar:
			if current != nil && depth == 0 {
				current = nil
				continue
			}
			closing()
			w.WriteByte('}')
		case css.BeginRulesetGrammar:
			open()
			w.Write(tokenText(p.Values()))
			w.WriteByte('{')
		case css.EndRulesetGrammar:
			closing()
			w.WriteByte('}')
		case css.QualifiedRuleGrammar:
			w.Write(tokenText(p.Values()))
			w.WriteByte(',')
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			w.Write(data)
			w.WriteByte(':')
			w.Write(tokenText(p.Values()))
			w.WriteByte(';')
		case css.AtRuleGrammar:
			writeAtRule(w, data, p.Values())
			w.WriteByte(';')
		default:
			w.Write(data)
		}
	}

	for _, query := range order {
		out.WriteString("@media ")
		out.WriteString(query)
		out.WriteByte('{')
		out.Write(groups[query].Bytes())
		out.WriteByte('}')
	}
	return out.Bytes(), nil
}

func tokenText(tokens []css.Token) []byte {
	var buf bytes.Buffer
	for _, t := range tokens {
		buf.Write(t.Data)
	}
	return buf.Bytes()
}

func writeAtRule(w *bytes.Buffer, name []byte, prelude []css.Token) {
	w.Write(name)
	if text := bytes.TrimSpace(tokenText(prelude)); len(text) > 0 {
		w.WriteByte(' ')
		w.Write(text)
	}
}
