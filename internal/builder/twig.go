// internal/builder/twig.go
package builder

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tyler-sommer/stick"
	"github.com/tyler-sommer/stick/twig"
)

// twigEngine executes twig views with stick. A view extends and includes
// templates as "@layouts/base.twig" or "@includes/nav.twig"; names without
// a namespace resolve next to the view.
type twigEngine struct {
	namespaces map[string]string
	funcs      template.FuncMap
}

func (e twigEngine) Render(w io.Writer, view string, data PageData) error {
	env := twig.New(twigLoader{dir: filepath.Dir(view), namespaces: e.namespaces})
	for name, fn := range e.funcs {
		helper, ok := fn.(func(string) string)
		if !ok {
			return fmt.Errorf("template helper %q cannot be used from twig", name)
		}
		env.Functions[name] = func(_ stick.Context, args ...stick.Value) stick.Value {
			if len(args) == 0 {
				return helper("")
			}
			return helper(stick.CoerceString(args[0]))
		}
	}
	return env.Execute(filepath.Base(view), w, twigContext(data))
}

// twigContext exposes the page data under twig's snake_case names.
func twigContext(data PageData) map[string]stick.Value {
	return map[string]stick.Value{
		"page":        data.Page,
		"title":       data.Title,
		"description": data.Description,
		"site":        data.Site,
		"mode":        data.Mode,
		"public_path": data.PublicPath,
		"scripts":     data.Scripts,
		"styles":      data.Styles,
		"content":     stick.NewSafeValue(string(data.Content), "html"),
		"params":      data.Params,
	}
}

type twigLoader struct {
	dir        string
	namespaces map[string]string
}

func (l twigLoader) Load(name string) (stick.Template, error) {
	path := filepath.Join(l.dir, filepath.FromSlash(name))
	if rest, ok := strings.CutPrefix(name, "@"); ok {
		ns, file, _ := strings.Cut(rest, "/")
		dir, known := l.namespaces[ns]
		if !known {
			return nil, fmt.Errorf("unknown template namespace %q in %q", ns, name)
		}
		path = filepath.Join(dir, filepath.FromSlash(file))
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return twigTemplate{name: name, src: src}, nil
}

type twigTemplate struct {
	name string
	src  []byte
}

func (t twigTemplate) Name() string        { return t.name }
func (t twigTemplate) Contents() io.Reader { return bytes.NewReader(t.src) }
