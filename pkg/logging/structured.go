// Package logging provides shared structured-logging utilities for the
// server: component-tagged slog handlers, secret redaction, MCP log
// level mapping, and an in-memory ring buffer of recent records
// (LogBuffer); no endpoint serves that buffer.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFormat specifies the output format for structured logging.
type LogFormat string

const (
	// FormatJSON outputs logs as JSON objects (machine-readable).
	FormatJSON LogFormat = "json"
	// FormatText outputs logs as human-readable key=value text.
	FormatText LogFormat = "text"
)

// Config holds configuration for structured logging.
type Config struct {
	// Level sets the minimum log level (default: INFO).
	Level slog.Level
	// Format sets the output format (default: JSON).
	Format LogFormat
	// Output sets the writer for log output (default: os.Stderr).
	Output io.Writer
	// AddSource adds source file and line information to logs.
	AddSource bool
	// Component identifies the logging component (e.g., "gateway", "dispatcher").
	Component string
	// LogFile, if set, tees log output to a rotated file at this path in
	// addition to Output. Used by the HTTP transport, which is typically
	// run as a long-lived daemon; the stdio transport never sets this
	// and logs to Output (stderr) only.
	LogFile string
}

// maxLogFileSizeMB is the size lumberjack rotates a log file at.
const maxLogFileSizeMB = 50

// maxLogFileBackups is how many rotated files lumberjack retains.
const maxLogFileBackups = 5

// newRotatingWriter wraps path in a lumberjack logger that rotates at
// maxLogFileSizeMB and keeps maxLogFileBackups compressed backups.
func newRotatingWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogFileSizeMB,
		MaxBackups: maxLogFileBackups,
		MaxAge:     28,
		Compress:   true,
	}
}

// DefaultConfig returns a default logging configuration. stdio transport
// mode must route Output to os.Stderr (stdout is the JSON-RPC wire);
// HTTP mode may use os.Stdout.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    FormatJSON,
		Output:    os.Stderr,
		AddSource: false,
	}
}

// NewStructuredLogger creates a new structured logger with the given
// configuration, wrapped in secret redaction.
func NewStructuredLogger(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.LogFile != "" {
		cfg.Output = io.MultiWriter(cfg.Output, newRotatingWriter(cfg.LogFile))
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String("ts", t.Format(time.RFC3339Nano))
				}
			}
			if a.Key == slog.MessageKey {
				a.Key = "msg"
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(cfg.Output, opts)
	default:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	handler = NewRedactingHandler(handler)

	if cfg.Component != "" {
		handler = &componentHandler{
			Handler:   handler,
			component: cfg.Component,
		}
	}

	return slog.New(handler)
}

// componentHandler wraps a handler to add a component field to every record.
type componentHandler struct {
	slog.Handler
	component string
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.String("component", h.component))
	return h.Handler.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: h.component,
	}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

// WithTraceID returns a new logger with the given trace ID attached.
func WithTraceID(logger *slog.Logger, traceID string) *slog.Logger {
	return logger.With(slog.String("trace_id", traceID))
}

// WithComponent returns a new logger with the given component name attached.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// LogEntry is a structured log entry shape suitable for JSON consumers
// of recent log records; no endpoint in this module serves it.
type LogEntry struct {
	Level     string         `json:"level"`
	Timestamp string         `json:"ts"`
	Message   string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// ParseLevel converts a string level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat converts a string format to LogFormat.
func ParseFormat(format string) LogFormat {
	switch strings.ToLower(format) {
	case "text", "pretty":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatJSON
	}
}

// mcpLevels is the eight severities the MCP logging/setLevel request and
// notifications/message use (§6.1), ordered least to most severe.
var mcpLevels = []string{"debug", "info", "notice", "warning", "error", "critical", "alert", "emergency"}

// ParseMCPLevel maps one of the eight MCP severities onto the nearest
// slog.Level. error/critical/alert/emergency all collapse to
// slog.LevelError, so the original MCP severity cannot be recovered from
// the returned level; no "mcpLevel" attribute is attached.
func ParseMCPLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "notice":
		return slog.LevelInfo + 2
	case "warning":
		return slog.LevelWarn
	case "error", "critical", "alert", "emergency":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidMCPLevel reports whether level is one of the eight MCP severities.
func ValidMCPLevel(level string) bool {
	level = strings.ToLower(level)
	for _, l := range mcpLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Caller returns the file and line of the caller at the given depth.
func Caller(depth int) (file string, line int) {
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		return "unknown", 0
	}
	if idx := strings.LastIndex(file, "/"); idx >= 0 {
		file = file[idx+1:]
	}
	return file, line
}
