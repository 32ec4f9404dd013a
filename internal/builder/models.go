// internal/builder/models.go
package builder

import "html/template"

// PageMeta holds the front matter of a markdown view. Keys without a field
// land in Params.
type PageMeta struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Layout      string         `yaml:"layout"`
	Draft       bool           `yaml:"draft"`
	EditML      bool           `yaml:"editml"`
	Unsafe      bool           `yaml:"unsafe"`
	Params      map[string]any `yaml:",inline"`
}

// PageData is what every view template executes against.
type PageData struct {
	Page        string
	Title       string
	Description string
	Site        string
	Mode        string
	PublicPath  string
	Scripts     []string
	Styles      []string
	Content     template.HTML
	Params      map[string]any
}
