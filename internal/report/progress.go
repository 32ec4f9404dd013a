// internal/report/progress.go
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
)

// Bar renders one progress line per build stage.
type Bar struct {
	out   io.Writer
	model progress.Model
}

// NewBar creates a progress reporter writing to out.
func NewBar(out io.Writer) *Bar {
	return &Bar{
		out:   out,
		model: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

func (b *Bar) Stage(index, total int, name string) {
	if total <= 0 {
		return
	}
	percent := float64(index) / float64(total)
	fmt.Fprintf(b.out, "\r%s %d/%d %s\033[K", b.model.ViewAs(percent), index, total, name)
}

func (b *Bar) Done(stats *Stats) {
	fmt.Fprintf(b.out, "\r%s build finished in %s\033[K\n", b.model.ViewAs(1), stats.Duration.Round(1e6))
}
