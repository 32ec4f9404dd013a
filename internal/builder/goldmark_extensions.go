// internal/builder/goldmark_extensions.go
package builder

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// pageLinkTransformer points links between markdown views at the pages they
// become: "about.md#team" turns into "about.html#team". External links are
// left alone.
type pageLinkTransformer struct{}

func newPageLinkTransformer() parser.ASTTransformer {
	return &pageLinkTransformer{}
}

func (t *pageLinkTransformer) Transform(node *ast.Document, _ text.Reader, _ parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		link.Destination = pageLink(link.Destination)
		return ast.WalkContinue, nil
	})
}

func pageLink(dest []byte) []byte {
	if bytes.Contains(dest, []byte("://")) {
		return dest
	}
	path, fragment := dest, []byte(nil)
	if i := bytes.IndexByte(dest, '#'); i >= 0 {
		path, fragment = dest[:i], dest[i:]
	}
	if !bytes.HasSuffix(path, []byte(".md")) {
		return dest
	}
	out := make([]byte, 0, len(dest)+2)
	out = append(out, bytes.TrimSuffix(path, []byte(".md"))...)
	out = append(out, ".html"...)
	return append(out, fragment...)
}
