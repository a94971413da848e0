package initializer

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var levelColors = map[log.Level]lipgloss.AdaptiveColor{
	log.DebugLevel: {Light: "#7E57C2", Dark: "#B39DDB"},
	log.InfoLevel:  {Light: "#04B575", Dark: "#04B575"},
	log.WarnLevel:  {Light: "#D98E04", Dark: "#F2C14E"},
	log.ErrorLevel: {Light: "#D7263D", Dark: "#FF6B6B"},
}

var levelLabels = map[log.Level]string{
	log.DebugLevel: "DEBU",
	log.InfoLevel:  "INFO",
	log.WarnLevel:  "WARN",
	log.ErrorLevel: "ERRO",
}

func loggerStyles() *log.Styles {
	styles := log.DefaultStyles()
	for level, color := range levelColors {
		styles.Levels[level] = lipgloss.NewStyle().
			SetString(levelLabels[level]).
			Bold(true).
			Padding(0, 1).
			Foreground(color)
	}
	muted := lipgloss.NewStyle().Foreground(levelColors[log.DebugLevel])
	for _, key := range []string{"handler", "user_id", "reference", "request_id"} {
		styles.Keys[key] = muted
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}
	styles.Keys["error"] = lipgloss.NewStyle().Foreground(levelColors[log.ErrorLevel])
	styles.Values["error"] = lipgloss.NewStyle().Bold(true)
	return styles
}

// NewLogger builds the charm log handler described by cfg and wraps it
// in slog. JSON output drops the terminal styles.
func NewLogger(cfg *config.Log, w io.Writer) *slog.Logger {
	formatter := log.TextFormatter
	if cfg.Format == "json" {
		formatter = log.JSONFormatter
	}
	handler := log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Format != "json",
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	if formatter == log.TextFormatter {
		handler.SetStyles(loggerStyles())
	}
	return slog.New(handler)
}

// setupLogger installs the stdout logger as the slog default.
func setupLogger(cfg *config.Log) *slog.Logger {
	logger := NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}
