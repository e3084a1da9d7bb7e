// Package obslog provides the structured logging used throughout conduit:
// one slog.Logger per component, JSON or text output, sensitive-value
// redaction, and context-correlated fields (trace id, session handle).
package obslog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog with redaction and context-field extraction.
type Logger struct {
	logger  *slog.Logger
	redacts []*regexp.Regexp
}

// Config configures the logging subsystem.
type Config struct {
	// Level is "debug", "info", "warn", or "error".
	Level string
	// Format is "json" or "text".
	Format string
	// File, when non-empty, routes output through a rotating file writer
	// instead of stdout.
	File string
	// Output overrides the destination writer (tests only); takes
	// precedence over File.
	Output io.Writer
}

// ContextKey identifies a well-known context-propagated logging field.
type ContextKey string

const (
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
	HandleKey    ContextKey = "handle"
	SessionIDKey ContextKey = "session_id"
)

var defaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["']?([a-zA-Z0-9_\-]{16,})["']?`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["']?([^\s"']{8,})["']?`,
	`sk-ant-[a-zA-Z0-9_-]{95,}`,
	`sk-[a-zA-Z0-9]{48,}`,
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,
}

// New builds the root logger for the process. Components should call
// WithFields("component", name) on the result rather than constructing
// their own.
func New(cfg Config) *Logger {
	var out io.Writer = os.Stdout
	switch {
	case cfg.Output != nil:
		out = cfg.Output
	case cfg.File != "":
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	redacts := make([]*regexp.Regexp, 0, len(defaultRedactPatterns))
	for _, p := range defaultRedactPatterns {
		if re, err := regexp.Compile(p); err == nil {
			redacts = append(redacts, re)
		}
	}

	return &Logger{logger: slog.New(handler), redacts: redacts}
}

// WithFields returns a child logger with the given static key-value pairs
// attached to every record it emits. Use this once per component:
// obslog.New(cfg).WithFields("component", "dispatcher").
func (l *Logger) WithFields(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), redacts: l.redacts}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelDebug, msg, args...) }
func (l *Logger) Info(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelWarn, msg, args...) }
func (l *Logger) Error(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelError, msg, args...) }

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	msg = l.redactString(msg)

	attrs := make([]any, 0, len(args)+6)
	if v, ok := ctx.Value(TraceIDKey).(string); ok && v != "" {
		attrs = append(attrs, "trace_id", v)
	}
	if v, ok := ctx.Value(SpanIDKey).(string); ok && v != "" {
		attrs = append(attrs, "span_id", v)
	}
	if v, ok := ctx.Value(HandleKey).(string); ok && v != "" {
		attrs = append(attrs, "handle", v)
	}
	if v, ok := ctx.Value(SessionIDKey).(string); ok && v != "" {
		attrs = append(attrs, "session_id", v)
	}

	for _, a := range args {
		attrs = append(attrs, l.redactValue(a))
	}

	l.logger.Log(ctx, level, msg, attrs...)
}

func (l *Logger) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return l.redactString(val)
	case error:
		return l.redactString(val.Error())
	case []byte:
		return l.redactString(string(val))
	default:
		if b, err := json.Marshal(v); err == nil {
			return l.redactString(string(b))
		}
		return v
	}
}

func (l *Logger) redactString(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// WithTraceID returns a context carrying a trace id for correlated logging.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// WithHandle returns a context carrying a user handle for correlated logging.
func WithHandle(ctx context.Context, handle string) context.Context {
	return context.WithValue(ctx, HandleKey, handle)
}

// WithSessionID returns a context carrying an agent session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// WithSpanID returns a context carrying the active span id.
func WithSpanID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SpanIDKey, id)
}
