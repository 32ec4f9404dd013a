// internal/report/report.go
package report

import (
	"fmt"
	"time"
)

// Severity classifies a diagnostic produced during a build.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// BuildError is one diagnostic surfaced by a build stage. File may carry a
// loader chain ("lint!src/js/main.js"); the originating file is the last segment.
type BuildError struct {
	Name    string `json:"name" yaml:"name"`
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (e BuildError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Name, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s:%d: %s", e.Name, e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Name, e.File, e.Message)
}

// Asset is a file written to the build directory.
type Asset struct {
	Path string
	Size int
}

// Stats summarises one build.
type Stats struct {
	Errors   []BuildError
	Warnings []BuildError
	Assets   []Asset
	Pages    int
	Duration time.Duration
}

func (s *Stats) HasErrors() bool { return len(s.Errors) > 0 }

func (s *Stats) AddError(e BuildError) { s.Errors = append(s.Errors, e) }

func (s *Stats) AddWarning(e BuildError) { s.Warnings = append(s.Warnings, e) }

func (s *Stats) AddAsset(path string, size int) {
	s.Assets = append(s.Assets, Asset{Path: path, Size: size})
}

// ErrorHandler receives the diagnostics of a finished build.
type ErrorHandler interface {
	HandleErrors(severity Severity, errs []BuildError)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(severity Severity, errs []BuildError)

func (f ErrorHandlerFunc) HandleErrors(severity Severity, errs []BuildError) { f(severity, errs) }

// Progress is notified as a build moves through its stages.
type Progress interface {
	Stage(index, total int, name string)
	Done(stats *Stats)
}
