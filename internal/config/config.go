// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultProjectFile is looked up in the project root when no path is given.
const DefaultProjectFile = "pagepack.yaml"

// Project holds the optional settings from the pagepack.yaml file.
// Empty fields fall back to the fixed layout (src, dist, "/").
type Project struct {
	Title      string            `yaml:"title"`
	Source     string            `yaml:"source"`
	Build      string            `yaml:"build"`
	PublicPath string            `yaml:"publicPath"`
	Entries    map[string]string `yaml:"entries"`
}

// LoadProject reads a project file. A missing file is not an error: the
// defaults describe a complete project.
func LoadProject(path string) (Project, error) {
	project := Project{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return project, nil
	}
	if err != nil {
		return Project{}, fmt.Errorf("could not read project file at %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &project); err != nil {
		return Project{}, fmt.Errorf("could not parse project file %s: %w", path, err)
	}
	return project, nil
}

// Paths resolves the project's directories against root.
func (p Project) Paths(root string) Paths {
	paths := DefaultPaths(root)
	if p.Source != "" {
		paths.Source = resolve(root, p.Source)
	}
	if p.Build != "" {
		paths.Build = resolve(root, p.Build)
	}
	if p.PublicPath != "" {
		paths.URL = p.PublicPath
	}
	return paths
}

// Overlay returns the project-level additions merged after the mode overlay.
func (p Project) Overlay(paths Paths) BuildConfig {
	overlay := BuildConfig{}
	if len(p.Entries) > 0 {
		overlay.Entry = make(map[string]string, len(p.Entries))
		for name, file := range p.Entries {
			overlay.Entry[name] = resolve(paths.Source, file)
		}
	}
	return overlay
}

// Paths are the fixed locations the configuration is built from.
type Paths struct {
	Root   string `yaml:"root" json:"root"`
	Source string `yaml:"source" json:"source"`
	Build  string `yaml:"build" json:"build"`
	// URL is the public path for absolute asset links.
	URL string `yaml:"url" json:"url"`
}

func DefaultPaths(root string) Paths {
	return Paths{
		Root:   root,
		Source: filepath.Join(root, "src"),
		Build:  filepath.Join(root, "dist"),
		URL:    "/",
	}
}

func (p Paths) Views() string    { return filepath.Join(p.Source, "templates", "views") }
func (p Paths) Layouts() string  { return filepath.Join(p.Source, "templates", "layouts") }
func (p Paths) Includes() string { return filepath.Join(p.Source, "templates", "includes") }

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
