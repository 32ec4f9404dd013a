package notify

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagepack/internal/report"
)

type recorder struct {
	sent []Notification
	err  error
}

func (r *recorder) Notify(n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func TestErrorNotifierFirstError(t *testing.T) {
	rec := &recorder{}
	n := NewErrorNotifier(rec, "/site/dist")

	n.HandleErrors(report.SeverityError, []report.BuildError{
		{Name: "ModuleBuildError", File: "lint!esbuild!src/js/main.js"},
		{Name: "Other", File: "src/js/other.js"},
	})

	require.Len(t, rec.sent, 1)
	assert.Equal(t, Notification{
		Title:    "pagepack",
		Message:  "error: ModuleBuildError",
		Subtitle: "src/js/main.js",
		Icon:     filepath.Join("/site/dist", "images", "error.png"),
	}, rec.sent[0])
}

func TestErrorNotifierIgnoresWarnings(t *testing.T) {
	rec := &recorder{}
	n := NewErrorNotifier(rec, "dist")

	n.HandleErrors(report.SeverityWarning, []report.BuildError{{Name: "LintError"}})
	n.HandleErrors(report.SeverityError, nil)

	assert.Empty(t, rec.sent)
}

func TestErrorNotifierOncePerBuild(t *testing.T) {
	rec := &recorder{err: errors.New("no notification daemon")}
	n := NewErrorNotifier(rec, "dist")

	for i := 0; i < 3; i++ {
		n.HandleErrors(report.SeverityError, []report.BuildError{{Name: "SyntaxError"}, {Name: "SyntaxError"}})
	}
	assert.Len(t, rec.sent, 3)
	assert.Empty(t, rec.sent[0].Subtitle)
}

func TestOriginFile(t *testing.T) {
	assert.Equal(t, "main.js", OriginFile("a!b!main.js"))
	assert.Equal(t, "main.js", OriginFile("main.js"))
	assert.Equal(t, "", OriginFile(""))
}
