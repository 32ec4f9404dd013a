// internal/builder/templates.go
package builder

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"pagepack/internal/config"
	"pagepack/internal/util"
)

// errDraft is returned by engines for views that must not be published.
var errDraft = errors.New("draft")

// Engine renders one view into the body of a page.
type Engine interface {
	Render(w io.Writer, view string, data PageData) error
}

// engine picks the template engine for a page from its extension and the
// template rule matching its view.
func (b *Builder) engine(page config.HTMLPage) (Engine, error) {
	if page.Engine == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoExtension, filepath.Base(page.Template))
	}

	var opts config.TemplateOptions
	for _, rule := range b.cfg.TemplateRules() {
		test, err := regexp.Compile(rule.Test)
		if err != nil {
			return nil, fmt.Errorf("invalid rule test %q: %w", rule.Test, err)
		}
		if !test.MatchString(page.Template) {
			continue
		}
		for _, l := range rule.Use {
			if l.Loader == config.LoaderTemplate {
				opts, _ = l.Options.(config.TemplateOptions)
			}
		}
		break
	}

	funcs, err := b.helpers(opts.Helpers)
	if err != nil {
		return nil, err
	}
	views := htmlEngine{namespaces: opts.Namespaces, funcs: funcs}

	switch page.Engine {
	case "html", "tmpl", "gohtml":
		return views, nil
	case "twig":
		return twigEngine{namespaces: opts.Namespaces, funcs: funcs}, nil
	case "md", "markdown":
		return markdownEngine{views: views, unsafe: b.opts.Unsafe, production: b.production()}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownEngine, page.Engine)
}

// helpers returns the template functions named by a template rule.
func (b *Builder) helpers(names []string) (template.FuncMap, error) {
	publicPath := b.cfg.Output.PublicPath
	available := template.FuncMap{
		"asset": func(rel string) string { return util.AssetURL(publicPath, rel) },
		"page":  func(name string) string { return util.AssetURL(publicPath, name+".html") },
	}
	funcs := template.FuncMap{}
	for _, name := range names {
		fn, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("unknown template helper %q", name)
		}
		funcs[name] = fn
	}
	return funcs, nil
}

// htmlEngine executes views with html/template. Every file of a namespace
// directory is available as "@namespace/file", so a view can start with
// {{template "@layouts/base.html" .}} and fill the blocks it declares.
type htmlEngine struct {
	namespaces map[string]string
	funcs      template.FuncMap
}

func (e htmlEngine) Render(w io.Writer, view string, data PageData) error {
	src, err := os.ReadFile(view)
	if err != nil {
		return err
	}
	root, err := e.load(filepath.Base(view))
	if err != nil {
		return err
	}
	if _, err := root.Parse(string(src)); err != nil {
		return err
	}
	return root.Execute(w, data)
}

// load parses the namespace directories into a set whose root is named name.
func (e htmlEngine) load(name string) (*template.Template, error) {
	root := template.New(name).Funcs(e.funcs)

	namespaces := make([]string, 0, len(e.namespaces))
	for ns := range e.namespaces {
		namespaces = append(namespaces, ns)
	}
	slices.Sort(namespaces)

	for _, ns := range namespaces {
		dir := e.namespaces[ns]
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			src, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if _, err := root.New("@" + ns + "/" + entry.Name()).Parse(string(src)); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}
	return root, nil
}
