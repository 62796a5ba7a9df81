package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// lineHandler renders every record as `[LEVEL][name] - message`, the exact
// diagnostic format spec.md §6/§7 mandates. slog itself (Logger, Record,
// Level, Handler) is the structured-logging surface the rest of the pack
// uses (see zhulik-skylytics's internal/cmd/logger.go); lineHandler is the
// custom Handler this module plugs into it so the wire format stays fixed
// regardless of slog's usual JSON/text renderers.
type lineHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
}

func newLineHandler(w io.Writer) *lineHandler {
	return &lineHandler{w: w, mu: &sync.Mutex{}}
}

func (h *lineHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	name := "unknown"
	for _, a := range h.attrs {
		if a.Key == "stage" {
			name = a.Value.String()
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "stage" {
			name = a.Value.String()
		}
		return true
	})

	level := "INFO"
	if r.Level >= slog.LevelError {
		level = "ERROR"
	}

	line := fmt.Sprintf("[%s][%s] - %s\n", level, name, r.Message)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line)
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lineHandler{w: h.w, mu: h.mu, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *lineHandler) WithGroup(string) slog.Handler { return h }

var defaultHandler slog.Handler = newLineHandler(os.Stderr)

// SetDiagnosticsWriter redirects the diagnostic output of every Stage
// constructed after the call to w, for example so a test can capture it
// instead of the process's real stderr. Stages that already exist keep
// the writer they were built with.
func SetDiagnosticsWriter(w io.Writer) {
	defaultHandler = newLineHandler(w)
}

// stageLogger returns a child logger bound to name, so every record it
// emits renders as [LEVEL][name] - message without the caller repeating the
// name at each call site.
func stageLogger(name string) *slog.Logger {
	return slog.New(defaultHandler).With(slog.String("stage", name))
}
