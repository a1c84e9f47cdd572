package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/flemzord/mcplab/internal/config"
	"github.com/flemzord/mcplab/internal/security"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// NewLogger builds the process logger described by cfg. Every format is
// wrapped in a RedactingHandler so tokens and passwords never reach w.
func NewLogger(cfg config.LogConfig, w io.Writer, redactor *security.Redactor) *slog.Logger {
	level := ParseLevel(cfg.Level)

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    cfg.NoColor || !isTerminal(w),
		})
	}

	if redactor == nil {
		redactor = security.NewRedactor()
	}
	return slog.New(security.NewRedactingHandler(handler, redactor))
}

// ParseLevel maps a config level name to a slog level. Unknown names map
// to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
