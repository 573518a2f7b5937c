package diag

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records; Enabled returns false so formatting is skipped.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by SlogReporter values that have no
// logger of their own. Pass nil to restore silence.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// SlogReporter writes events as structured log records: box conditions at
// warn level, traces at debug level.
type SlogReporter struct {
	Logger *slog.Logger
}

// Report logs e.
func (r SlogReporter) Report(e Event) {
	l := r.Logger
	if l == nil {
		l = Logger()
	}
	switch e.Kind {
	case TraceParagraph, TracePage:
		l.Debug(e.Message, slog.String("trace", e.Kind.String()))
	case InfiniteShrink:
		l.Error(e.Message, slog.String("kind", e.Kind.String()), slog.Bool("vertical", e.Vertical))
	case Overfull:
		l.Warn(e.String(), slog.String("kind", e.Kind.String()), slog.Bool("vertical", e.Vertical),
			slog.String("excess", e.Excess.String()+"pt"))
	default:
		l.Warn(e.String(), slog.String("kind", e.Kind.String()), slog.Bool("vertical", e.Vertical),
			slog.Int("badness", e.Badness))
	}
}
