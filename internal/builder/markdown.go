// internal/builder/markdown.go
package builder

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"

	"github.com/microcosm-cc/bluemonday"
	"github.com/verkaro/editml-go"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
	"gopkg.in/yaml.v3"
)

var (
	markdownRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(newPageLinkTransformer(), 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	htmlSanitizer = bluemonday.UGCPolicy()

	frontMatterDelim = []byte("---")
)

// markdownEngine renders markdown views. Front matter may name a layout from
// the layouts namespace; without one the rendered body is the page.
type markdownEngine struct {
	views      htmlEngine
	unsafe     bool
	production bool
}

func (e markdownEngine) Render(w io.Writer, view string, data PageData) error {
	raw, err := os.ReadFile(view)
	if err != nil {
		return err
	}
	meta, body, err := renderMarkdown(raw, e.unsafe)
	if err != nil {
		return err
	}
	if meta.Draft && e.production {
		return errDraft
	}

	if meta.Title != "" {
		data.Title = meta.Title
	}
	data.Description = meta.Description
	data.Params = meta.Params
	data.Content = template.HTML(body)

	if meta.Layout == "" {
		_, err := io.WriteString(w, body)
		return err
	}
	set, err := e.views.load(view)
	if err != nil {
		return err
	}
	return set.ExecuteTemplate(w, "@layouts/"+meta.Layout, data)
}

// splitFrontMatter separates a leading "---" block from the body.
func splitFrontMatter(raw []byte) ([]byte, []byte) {
	if !bytes.HasPrefix(raw, frontMatterDelim) {
		return nil, raw
	}
	rest := raw[len(frontMatterDelim):]
	end := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
	if end < 0 {
		return nil, raw
	}
	body := rest[end+1+len(frontMatterDelim):]
	return rest[:end], bytes.TrimLeft(body, "\r\n")
}

// renderMarkdown parses front matter, strips EditML markup when asked to and
// renders the body. The HTML is sanitized unless unsafe is set here or in
// the front matter.
func renderMarkdown(raw []byte, unsafe bool) (PageMeta, string, error) {
	meta := PageMeta{}
	front, body := splitFrontMatter(raw)
	if front != nil {
		if err := yaml.Unmarshal(front, &meta); err != nil {
			return PageMeta{}, "", fmt.Errorf("failed to parse front matter: %w", err)
		}
	}

	if meta.EditML {
		clean, err := cleanEditML(string(body))
		if err != nil {
			return meta, "", err
		}
		body = []byte(clean)
	}

	var buf bytes.Buffer
	if err := markdownRenderer.Convert(body, &buf); err != nil {
		return meta, "", fmt.Errorf("failed to render markdown: %w", err)
	}
	if !unsafe && !meta.Unsafe {
		return meta, string(htmlSanitizer.SanitizeBytes(buf.Bytes())), nil
	}
	return meta, buf.String(), nil
}

// cleanEditML resolves editorial markup to the accepted text.
func cleanEditML(src string) (string, error) {
	nodes, issues := editml.Parse(src)
	if len(issues) > 0 && issues[0].Severity == editml.SeverityError {
		return "", fmt.Errorf("editml parsing error: %s", issues[0].Message)
	}
	clean, issues := editml.TransformCleanView(nodes)
	if len(issues) > 0 && issues[0].Severity == editml.SeverityError {
		return "", fmt.Errorf("editml transformation error: %s", issues[0].Message)
	}
	return clean, nil
}
