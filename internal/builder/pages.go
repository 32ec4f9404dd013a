// internal/builder/pages.go
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tdewolff/minify/v2"
	mcss "github.com/tdewolff/minify/v2/css"
	mhtml "github.com/tdewolff/minify/v2/html"

	"pagepack/internal/config"
	"pagepack/internal/report"
	"pagepack/internal/util"
)

var pageMinifier = func() *minify.M {
	m := minify.New()
	m.Add("text/html", &mhtml.Minifier{KeepDocumentTags: true, KeepEndTags: true})
	m.AddFunc("text/css", mcss.Minify)
	return m
}()

// renderPages renders every HTML page plugin. A page that fails to render is
// reported and skipped; the remaining pages are still written.
func (b *Builder) renderPages(ctx context.Context, stats *report.Stats) error {
	for _, page := range b.cfg.Pages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := b.renderPage(page)
		if errors.Is(err, errDraft) {
			b.log.Debug().Str("page", page.Filename).Msg("skipping draft")
			continue
		}
		if err != nil {
			stats.AddError(report.BuildError{
				Name:    "TemplateError",
				File:    page.Template,
				Message: err.Error(),
			})
			continue
		}
		if err := b.writeAsset(stats, page.Filename, out); err != nil {
			return err
		}
		stats.Pages++
	}
	return nil
}

func (b *Builder) renderPage(page config.HTMLPage) ([]byte, error) {
	engine, err := b.engine(page)
	if err != nil {
		return nil, err
	}

	scripts, styles := b.pageFiles(page.Chunks)
	data := PageData{
		Page:       strings.TrimSuffix(page.Filename, filepath.Ext(page.Filename)),
		Title:      b.opts.Title,
		Site:       b.opts.Title,
		Mode:       string(b.cfg.Mode),
		PublicPath: b.cfg.Output.PublicPath,
		Scripts:    scripts,
		Styles:     styles,
	}

	var buf bytes.Buffer
	if err := engine.Render(&buf, page.Template, data); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if page.Inject {
		out = injectTags(out, styles, scripts)
	}
	if b.production() {
		minified, err := pageMinifier.Bytes("text/html", out)
		if err != nil {
			return nil, fmt.Errorf("failed to minify %s: %w", page.Filename, err)
		}
		out = minified
	}
	return out, nil
}

// pageFiles returns the script and style URLs of the named chunks in order.
// Chunks that were never emitted are ignored.
func (b *Builder) pageFiles(chunks []string) ([]string, []string) {
	var scripts, styles []string
	for _, name := range chunks {
		files, ok := b.chunks[name]
		if !ok {
			continue
		}
		for _, f := range files.Scripts {
			if u := util.AssetURL(b.cfg.Output.PublicPath, f); !slices.Contains(scripts, u) {
				scripts = append(scripts, u)
			}
		}
		for _, f := range files.Styles {
			if u := util.AssetURL(b.cfg.Output.PublicPath, f); !slices.Contains(styles, u) {
				styles = append(styles, u)
			}
		}
	}
	return scripts, styles
}

// injectTags puts stylesheet links before </head> and module scripts before
// </body>. Documents without those tags get them prepended and appended.
func injectTags(doc []byte, styles, scripts []string) []byte {
	var links, tags strings.Builder
	for _, href := range styles {
		fmt.Fprintf(&links, "<link href=\"%s\" rel=\"stylesheet\">", html.EscapeString(href))
	}
	for _, src := range scripts {
		fmt.Fprintf(&tags, "<script type=\"module\" src=\"%s\"></script>", html.EscapeString(src))
	}

	doc = insertBefore(doc, "</head>", links.String(), true)
	return insertBefore(doc, "</body>", tags.String(), false)
}

func insertBefore(doc []byte, tag, insert string, prepend bool) []byte {
	if insert == "" {
		return doc
	}
	if out, found := util.InsertBefore(doc, tag, insert); found {
		return out
	}
	if prepend {
		return append([]byte(insert), doc...)
	}
	return append(doc, insert...)
}
