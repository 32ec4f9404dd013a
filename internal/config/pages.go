// internal/config/pages.go
package config

import (
	"os"
	"strings"
)

// Page is derived from one file in the views directory: "about.html" gives
// Name "about" and Extension "html". A file without a dot has no extension.
type Page struct {
	Name      string `yaml:"name" json:"name"`
	Extension string `yaml:"extension" json:"extension"`
}

// FileName rebuilds the template file name the page was derived from.
func (p Page) FileName() string {
	if p.Extension == "" {
		return p.Name
	}
	return p.Name + "." + p.Extension
}

// ParsePage splits a file name on its first dot.
func ParsePage(fileName string) Page {
	name, ext, _ := strings.Cut(fileName, ".")
	return Page{Name: name, Extension: ext}
}

// DiscoverPages lists dir (non-recursively) and returns one page per entry in
// listing order. Hidden entries are skipped. Errors from the filesystem are
// returned as is.
func DiscoverPages(dir string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		pages = append(pages, ParsePage(entry.Name()))
	}
	return pages, nil
}
