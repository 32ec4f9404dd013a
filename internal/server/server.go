// internal/server/server.go
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"pagepack/internal/config"
	"pagepack/internal/report"
	"pagepack/internal/util"
)

const debounceDuration = 300 * time.Millisecond

// BuildFunc runs one complete build. It is expected to assemble the
// configuration again, so views added while serving become pages.
type BuildFunc func(ctx context.Context) (*report.Stats, error)

// Server serves the build directory, rebuilds on source changes and tells
// connected browsers to reload or to show the build errors.
type Server struct {
	cfg      config.DevServer
	watch    []string
	build    BuildFunc
	hub      *Hub
	log      zerolog.Logger
	debounce func(func())

	mu sync.Mutex
}

// New creates a dev server. watch lists the files and directories whose
// changes trigger a rebuild; directories are watched recursively.
func New(cfg config.DevServer, watch []string, build BuildFunc, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		watch:    watch,
		build:    build,
		hub:      newHub(log),
		log:      log,
		debounce: debounce.New(debounceDuration),
	}
}

// Run builds once, starts watching and serves until ctx is cancelled. A
// failing build does not stop the server.
func (s *Server) Run(ctx context.Context) error {
	s.Rebuild(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer watcher.Close()
	for _, p := range s.watch {
		if err := s.addTree(watcher, p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}
	go s.watchForChanges(ctx, watcher)

	listener, err := net.Listen("tcp", util.ListenAddr(s.cfg.Host, s.cfg.Port))
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()

	s.log.WithLevel(util.Cond(s.cfg.Quiet, zerolog.DebugLevel, zerolog.InfoLevel)).
		Str("url", util.BrowseURL(s.cfg.Host, listener.Addr().(*net.TCPAddr).Port)).
		Str("root", s.cfg.ContentBase).
		Msg("serving build directory")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Rebuild runs a build and notifies the browsers: a reload on success, the
// first error for the overlay on failure. Builds never overlap.
func (s *Server) Rebuild(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.build(ctx)
	var errs []report.BuildError
	switch {
	case stats != nil && stats.HasErrors():
		errs = stats.Errors
	case err != nil:
		errs = []report.BuildError{{Name: "BuildError", Message: err.Error()}}
	}

	if len(errs) > 0 {
		s.log.Warn().Int("errors", len(errs)).Msg("build failed")
		if s.cfg.Overlay {
			s.hub.broadcast(Message{Type: MessageErrors, Errors: errs[:1]})
		}
		return
	}
	s.log.Debug().Msg("build succeeded, reloading clients")
	s.hub.broadcast(Message{Type: MessageReload})
}

// Handler returns the HTTP handler of the server without starting it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(s.hub, w, r)
	})

	var files http.Handler = http.FileServer(http.Dir(s.cfg.ContentBase))
	if s.cfg.LiveReload {
		files = liveReloadWrapper(files)
	}
	if s.cfg.HistoryAPIFallback {
		files = s.historyFallback(files)
	}
	mux.Handle("/", files)

	if s.cfg.DisableHostCheck {
		return mux
	}
	return s.hostCheck(mux)
}

// historyFallback serves the index page for HTML requests to paths that
// are not files, so client-side routes survive a reload.
func (s *Server) historyFallback(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodGet || r.Method == http.MethodHead) &&
			strings.Contains(r.Header.Get("Accept"), "text/html") &&
			!strings.Contains(path.Base(r.URL.Path), ".") {
			target := filepath.Join(s.cfg.ContentBase, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
			if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
				r.URL.Path = "/"
			}
		}
		next.ServeHTTP(w, r)
	})
}

// hostCheck rejects requests whose Host is neither local nor the
// configured host.
func (s *Server) hostCheck(next http.Handler) http.Handler {
	allowed := map[string]bool{"localhost": true, "127.0.0.1": true, "::1": true}
	if s.cfg.Host != "" {
		allowed[strings.ToLower(s.cfg.Host)] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if !allowed[strings.ToLower(strings.Trim(host, "[]"))] {
			http.Error(w, "Invalid Host header", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// addTree watches root and every directory below it. For a file, its
// parent directory is watched so editors that save by renaming still
// trigger events.
func (s *Server) addTree(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == "node_modules" || (p != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		s.log.Debug().Str("dir", p).Msg("watching directory")
		return watcher.Add(p)
	})
}

func (s *Server) watchForChanges(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.addTree(watcher, event.Name); err != nil {
						s.log.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
					}
				}
			}
			s.log.Debug().Str("file", event.Name).Msg("change detected")
			s.debounce(func() { s.Rebuild(ctx) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// liveReloadWrapper injects the live-reload client into HTML responses and
// disables caching for everything it serves.
func liveReloadWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		isHTML := strings.HasSuffix(r.URL.Path, ".html") || strings.HasSuffix(r.URL.Path, "/")
		if !isHTML {
			next.ServeHTTP(w, r)
			return
		}

		iw := newInterceptingWriter(w)
		next.ServeHTTP(iw, r)

		for key, values := range iw.Header() {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		body := iw.body.Bytes()
		if iw.statusCode != http.StatusOK {
			w.WriteHeader(iw.statusCode)
			w.Write(body)
			return
		}

		if injected, found := util.InsertBefore(body, "</body>", liveReloadScript); found {
			body = injected
		} else {
			body = append(body, liveReloadScript...)
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.WriteHeader(iw.statusCode)
		w.Write(body)
	})
}

type interceptingWriter struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	header     http.Header
}

func newInterceptingWriter(w http.ResponseWriter) *interceptingWriter {
	return &interceptingWriter{
		ResponseWriter: w,
		body:           new(bytes.Buffer),
		header:         make(http.Header),
		statusCode:     http.StatusOK,
	}
}

func (iw *interceptingWriter) Header() http.Header {
	return iw.header
}

func (iw *interceptingWriter) Write(b []byte) (int, error) {
	return iw.body.Write(b)
}

func (iw *interceptingWriter) WriteHeader(statusCode int) {
	iw.statusCode = statusCode
}

const liveReloadScript = `
<script>
  (function() {
    var overlay;
    function hideOverlay() {
      if (overlay) { overlay.remove(); overlay = null; }
    }
    function showOverlay(errors) {
      hideOverlay();
      overlay = document.createElement("pre");
      overlay.id = "pagepack-overlay";
      overlay.style.cssText = "position:fixed;inset:0;margin:0;padding:2em;overflow:auto;z-index:2147483647;" +
        "background:rgba(0,0,0,.85);color:#e8e8e8;font:13px/1.5 monospace;white-space:pre-wrap";
      overlay.textContent = "Failed to compile\n\n" + errors.map(function(e) {
        var where = e.file ? e.file + (e.line ? ":" + e.line : "") + "\n" : "";
        return e.name + "\n" + where + e.message;
      }).join("\n\n");
      document.body.appendChild(overlay);
    }
    var socket = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    socket.onmessage = function(event) {
      var msg = JSON.parse(event.data);
      if (msg.type === "reload") {
        window.location.reload();
      } else if (msg.type === "errors") {
        showOverlay(msg.errors || []);
      }
    };
    socket.onerror = function() {
      console.error("Live reload connection lost. Restart 'pagepack serve'.");
    };
  })();
</script>
`
