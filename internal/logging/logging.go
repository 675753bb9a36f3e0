// Package logging configures the process-wide slog logger: colored
// charmbracelet output in development, JSON lines in production.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

// ParseLevel maps debug/info/warn/error to a slog level. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New returns a logger writing to w. production selects the JSON handler.
func New(w io.Writer, production bool, level string) *slog.Logger {
	lvl := ParseLevel(level)
	if production {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}

	l := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(lvl),
		Prefix:          "canvas",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	l.SetStyles(styles())
	return slog.New(l)
}

// Setup installs the logger as slog's default and returns it.
func Setup(production bool, level string) *slog.Logger {
	logger := New(os.Stderr, production, level)
	slog.SetDefault(logger)
	return logger
}

func styles() *charmlog.Styles {
	s := charmlog.DefaultStyles()
	s.Keys["origin"] = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	s.Keys["type"] = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	s.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	s.Values["error"] = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	return s
}
