// internal/notify/notify.go
package notify

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"pagepack/internal/report"
)

// Notification is a desktop notification.
type Notification struct {
	Title    string
	Message  string
	Subtitle string
	Icon     string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(n Notification) error
}

// Desktop sends notifications through the OS notification service.
type Desktop struct {
	AppName string
}

var appNameOnce sync.Once

func (d Desktop) Notify(n Notification) error {
	if d.AppName != "" {
		appNameOnce.Do(func() { beeep.AppName = d.AppName })
	}
	message := n.Message
	if n.Subtitle != "" {
		message += "\n" + n.Subtitle
	}
	return beeep.Notify(n.Title, message, n.Icon)
}

// ErrorNotifier turns a failing build into a single notification carrying the
// first error's name and the file it came from.
type ErrorNotifier struct {
	Notifier Notifier
	Title    string
	Icon     string
	Log      zerolog.Logger
}

// NewErrorNotifier uses the error icon shipped in the build's images.
func NewErrorNotifier(n Notifier, buildDir string) *ErrorNotifier {
	return &ErrorNotifier{
		Notifier: n,
		Title:    "pagepack",
		Icon:     filepath.Join(buildDir, "images", "error.png"),
		Log:      zerolog.Nop(),
	}
}

func (e *ErrorNotifier) HandleErrors(severity report.Severity, errs []report.BuildError) {
	if severity != report.SeverityError || len(errs) == 0 {
		return
	}

	first := errs[0]
	n := Notification{
		Title:    e.Title,
		Message:  string(severity) + ": " + first.Name,
		Subtitle: OriginFile(first.File),
		Icon:     e.Icon,
	}
	if err := e.Notifier.Notify(n); err != nil {
		e.Log.Debug().Err(err).Msg("desktop notification failed")
	}
}

// OriginFile strips a loader chain ("a!b!file") down to the file.
func OriginFile(file string) string {
	if i := strings.LastIndex(file, "!"); i >= 0 {
		return file[i+1:]
	}
	return file
}
