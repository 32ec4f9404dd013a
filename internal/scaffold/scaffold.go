// internal/scaffold/scaffold.go
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"pagepack/internal/config"
)

// ErrExists is returned when scaffolding would overwrite a file.
var ErrExists = errors.New("already exists")

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// CreateNewProject writes a starter project into dir. It refuses to run in a
// directory that already holds a project file.
func CreateNewProject(dir, title string, out io.Writer) error {
	projectFile := filepath.Join(dir, config.DefaultProjectFile)
	if _, err := os.Stat(projectFile); err == nil {
		return fmt.Errorf("%s: %w", projectFile, ErrExists)
	}
	if title == "" {
		title = filepath.Base(dir)
	}

	fmt.Fprintln(out, "Scaffolding new project in:", dir)
	paths := config.DefaultPaths(dir)
	dirs := []string{
		filepath.Join(paths.Source, "js"),
		filepath.Join(paths.Source, "styles"),
		filepath.Join(paths.Source, "images"),
		filepath.Join(paths.Source, "fonts"),
		paths.Views(),
		paths.Layouts(),
		paths.Includes(),
		filepath.Join(dir, "archetypes"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}

	project, err := render(projectContent, struct{ Title string }{title})
	if err != nil {
		return err
	}
	files := []struct{ path, content string }{
		{projectFile, project},
		{filepath.Join(paths.Source, "js", "main.js"), mainJSContent},
		{filepath.Join(paths.Source, "styles", "main.css"), mainCSSContent},
		{filepath.Join(paths.Views(), "index.html"), indexViewContent},
		{filepath.Join(paths.Views(), "about.md"), aboutViewContent},
		{filepath.Join(paths.Layouts(), "base.html"), baseLayoutContent},
		{filepath.Join(paths.Includes(), "header.html"), headerIncludeContent},
		{filepath.Join(paths.Includes(), "footer.html"), footerIncludeContent},
		{filepath.Join(dir, "archetypes", "default.md"), archetypeContent},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", f.path, err)
		}
	}

	fmt.Fprintln(out, "Project scaffolded. You can now:")
	fmt.Fprintln(out, "  cd", dir)
	fmt.Fprintln(out, "  pagepack serve")
	return nil
}

// CreateNewView writes a markdown view from the project's archetype and
// returns its path.
func CreateNewView(root string, paths config.Paths, title string) (string, error) {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		return "", fmt.Errorf("cannot derive a file name from title %q", title)
	}
	path := filepath.Join(paths.Views(), slug+".md")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s: %w", path, ErrExists)
	}

	archetypePath := filepath.Join(root, "archetypes", "default.md")
	tmplBytes, err := os.ReadFile(archetypePath)
	if errors.Is(err, os.ErrNotExist) {
		tmplBytes = []byte(archetypeContent)
	} else if err != nil {
		return "", fmt.Errorf("could not read archetype file %s: %w", archetypePath, err)
	}

	content, err := render(string(tmplBytes), struct{ Title string }{title})
	if err != nil {
		return "", fmt.Errorf("failed to execute archetype %s: %w", archetypePath, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func render(text string, data any) (string, error) {
	tmpl, err := template.New("scaffold").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const projectContent = `title: {{.Title}}
source: src
build: dist
publicPath: /
`

const archetypeContent = `---
title: {{.Title}}
layout: base.html
description:
---

Write something meaningful here.
`

const mainJSContent = `import "../styles/main.css";

document.documentElement.classList.add("js");
`

const mainCSSContent = `body {
  font-family: sans-serif;
  max-width: 700px;
  margin: 2em auto;
  padding: 0 1em;
  line-height: 1.6;
  color: #222;
  background: #fdfdfd;
}
header {
  display: flex;
  justify-content: space-between;
  align-items: baseline;
  gap: 1em;
  margin-bottom: 2em;
  user-select: none;
}
@media (max-width: 600px) {
  header { flex-direction: column; }
}
main { margin-bottom: 3em; }
footer { text-align: center; font-size: 0.9em; color: #555; }
footer nav a { color: #444; text-decoration: none; margin: 0 0.5em; }
@media (max-width: 600px) {
  body { margin: 1em auto; }
}
`

const baseLayoutContent = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{ .Title }} | {{ .Site }}</title>
{{ if .Description }}
  <meta name="description" content="{{ .Description }}">
{{ end }}
</head>
<body>
  {{ template "@includes/header.html" . }}
  <main>
    {{ block "content" . }}{{ .Content }}{{ end }}
  </main>
  {{ template "@includes/footer.html" . }}
</body>
</html>
`

const headerIncludeContent = `<header>
  <div class="site-name">{{ .Site }}</div>
  <div class="page-title">{{ .Title }}</div>
</header>
`

const footerIncludeContent = `<footer>
  <nav>
    <a href="{{ page "index" }}">home</a>
    <a href="{{ page "about" }}">about</a>
  </nav>
</footer>
`

const indexViewContent = `{{ template "@layouts/base.html" . }}
{{ define "content" }}
<h1>{{ .Site }}</h1>
<p>Edit <code>src/templates/views/index.html</code> and save to reload.</p>
{{ end }}
`

const aboutViewContent = `---
title: About
layout: base.html
---

This page is written in [markdown](https://commonmark.org). Go back [home](index.md).
`
