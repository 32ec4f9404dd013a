// internal/lint/lint.go
package lint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"pagepack/internal/report"
)

// Rule names.
const (
	NoDebugger           = "no-debugger"
	EOLLast              = "eol-last"
	GeneratorStarSpacing = "generator-star-spacing"
	// ParseError reports a file the lexer could not read. It cannot be
	// turned off.
	ParseError = "parse-error"
)

// Off disables a rule, including one inherited from a preset.
const Off report.Severity = "off"

// ErrUnknownPreset is returned for an Extends entry without a preset.
var ErrUnknownPreset = errors.New("unknown lint preset")

var presets = map[string]map[string]report.Severity{
	"standard": {
		NoDebugger:           report.SeverityError,
		EOLLast:              report.SeverityError,
		GeneratorStarSpacing: report.SeverityError,
	},
}

// Config is the rule set applied to script sources. Presets named in
// Extends apply in order and Rules override them.
type Config struct {
	Extends []string                   `yaml:"extends" json:"extends"`
	Rules   map[string]report.Severity `yaml:"rules" json:"rules"`
}

// DefaultConfig extends the standard style guide without its generator star
// spacing rule. A debugger statement is only tolerated (as a warning) while
// developing.
func DefaultConfig(development bool) Config {
	debugger := report.SeverityError
	if development {
		debugger = report.SeverityWarning
	}
	return Config{
		Extends: []string{"standard"},
		Rules: map[string]report.Severity{
			GeneratorStarSpacing: Off,
			NoDebugger:           debugger,
		},
	}
}

// Effective returns the severity of every enabled rule.
func (c Config) Effective() (map[string]report.Severity, error) {
	rules := make(map[string]report.Severity)
	for _, name := range c.Extends {
		preset, ok := presets[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownPreset, name)
		}
		maps.Copy(rules, preset)
	}
	maps.Copy(rules, c.Rules)
	maps.DeleteFunc(rules, func(_ string, severity report.Severity) bool { return severity == Off })
	return rules, nil
}

// Finding is one rule violation.
type Finding struct {
	File     string
	Line     int
	Rule     string
	Severity report.Severity
	Message  string
}

func (f Finding) BuildError() report.BuildError {
	return report.BuildError{
		Name:    "LintError",
		File:    "lint!" + f.File,
		Line:    f.Line,
		Message: fmt.Sprintf("%s (%s)", f.Message, f.Rule),
	}
}

// Source lints one script. A lexer error ends the file with a ParseError
// finding.
func (c Config) Source(file string, src []byte) ([]Finding, error) {
	rules, err := c.Effective()
	if err != nil {
		return nil, err
	}

	var findings []Finding
	add := func(rule string, line int, msg string) {
		severity, ok := rules[rule]
		if !ok {
			return
		}
		findings = append(findings, Finding{File: file, Line: line, Rule: rule, Severity: severity, Message: msg})
	}
	parseError := func(line int, err error) []Finding {
		if err == nil {
			err = errors.New("unexpected end of input")
		}
		return append(findings, Finding{File: file, Line: line, Rule: ParseError, Severity: report.SeverityError, Message: err.Error()})
	}

	lexer := js.NewLexer(parse.NewInputBytes(src))
	line := 1
	var prev js.TokenType
	space, starPending := false, false
	for {
		tt, data := lexer.Next()
		if tt == js.ErrorToken {
			if err := lexer.Err(); err != nil && !errors.Is(err, io.EOF) {
				return parseError(line, err), nil
			}
			break
		}
		if (tt == js.DivToken || tt == js.DivEqToken) && regexpAllowed(prev) {
			tt, data = lexer.RegExp()
			if tt == js.ErrorToken {
				return parseError(line, lexer.Err()), nil
			}
		}

		if starPending {
			if !isSpace(tt) {
				add(GeneratorStarSpacing, line, "Missing space after *")
			}
			starPending = false
		}
		switch {
		case tt == js.DebuggerToken:
			add(NoDebugger, line, "Unexpected 'debugger' statement")
		case tt == js.MulToken && prev == js.FunctionToken:
			if !space {
				add(GeneratorStarSpacing, line, "Missing space before *")
			}
			starPending = true
		}

		line += bytes.Count(data, []byte("\n"))
		space = isSpace(tt)
		if !space {
			prev = tt
		}
	}

	if len(src) > 0 && src[len(src)-1] != '\n' {
		add(EOLLast, line, "Newline required at end of file")
	}
	return findings, nil
}

func isSpace(tt js.TokenType) bool {
	switch tt {
	case js.WhitespaceToken, js.LineTerminatorToken, js.CommentToken, js.CommentLineTerminatorToken:
		return true
	}
	return false
}

// regexpAllowed reports whether a slash after prev starts a regular expression.
func regexpAllowed(prev js.TokenType) bool {
	switch prev {
	case 0:
		return true
	case js.CloseParenToken, js.CloseBracketToken, js.CloseBraceToken,
		js.ThisToken, js.SuperToken, js.TrueToken, js.FalseToken, js.NullToken:
		return false
	}
	return js.IsPunctuator(prev) || js.IsOperator(prev) || js.IsReservedWord(prev)
}

// Dir lints every file under root whose path matches test and not exclude.
// exclude may be nil. Files the lexer cannot read are reported and the walk
// goes on.
func (c Config) Dir(root string, test, exclude *regexp.Regexp) ([]Finding, error) {
	if _, err := c.Effective(); err != nil {
		return nil, err
	}
	var findings []Finding
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if exclude != nil && exclude.MatchString(filepath.ToSlash(path)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !test.MatchString(path) {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		found, err := c.Source(filepath.ToSlash(rel), src)
		findings = append(findings, found...)
		return err
	})
	if err != nil {
		return findings, err
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		return findings[i].Line < findings[j].Line
	})
	return findings, nil
}
