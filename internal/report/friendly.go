// internal/report/friendly.go
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Friendly prints a compact build summary and forwards errors to an optional handler.
type Friendly struct {
	Out          io.Writer
	Log          zerolog.Logger
	ClearConsole bool
	Messages     []string
	OnErrors     ErrorHandler
}

// Report prints the outcome of a build.
func (f *Friendly) Report(stats *Stats) {
	out := f.Out
	if out == nil {
		out = os.Stderr
	}
	if f.ClearConsole && isTerminal(out) {
		fmt.Fprint(out, "\033[2J\033[H")
	}

	if stats.HasErrors() {
		fmt.Fprintf(out, " ERROR  Failed to compile with %d errors\n\n", len(stats.Errors))
		for _, e := range stats.Errors {
			fmt.Fprintf(out, "  %s\n", e.Error())
		}
		if f.OnErrors != nil {
			f.OnErrors.HandleErrors(SeverityError, stats.Errors)
		}
		return
	}

	if len(stats.Warnings) > 0 {
		fmt.Fprintf(out, " WARNING  Compiled with %d warnings\n\n", len(stats.Warnings))
		for _, w := range stats.Warnings {
			fmt.Fprintf(out, "  %s\n", w.Error())
		}
		if f.OnErrors != nil {
			f.OnErrors.HandleErrors(SeverityWarning, stats.Warnings)
		}
		return
	}

	fmt.Fprintf(out, " DONE  Compiled successfully in %s\n", stats.Duration.Round(1e6))
	for _, m := range f.Messages {
		fmt.Fprintf(out, "\n  %s\n", m)
	}
	f.Log.Debug().Int("assets", len(stats.Assets)).Int("pages", stats.Pages).Msg("build summary")
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
