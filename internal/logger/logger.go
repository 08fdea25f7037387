package logger

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var std *slog.Logger

type ctxKey string

// RequestIDKey holds the identifier of the reference being processed.
const RequestIDKey ctxKey = "requestID"

// WithRequestID attaches a request identifier that every log line emitted
// with this context will carry.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// --- handler that appends the request id as an attribute ---

type requestAttrHandler struct{ h slog.Handler }

func (u requestAttrHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return u.h.Enabled(ctx, lvl)
}

func (u requestAttrHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("request", id))
	}
	return u.h.Handle(ctx, r)
}

func (u requestAttrHandler) WithAttrs(a []slog.Attr) slog.Handler {
	return requestAttrHandler{h: u.h.WithAttrs(a)}
}
func (u requestAttrHandler) WithGroup(n string) slog.Handler {
	return requestAttrHandler{h: u.h.WithGroup(n)}
}

// --- public API ---

// Init
// ENV:
//
//	LOG_FORMAT    json|text (default: json)
//	LOG_LEVEL     debug|info|warn|error (default: info)
//	LOG_SOURCE    true|false (default: false)
func Init() {
	level := parseLevel(getEnv("LOG_LEVEL", "info"))
	addSource := parseBool(getEnv("LOG_SOURCE", "false"))
	format := strings.ToLower(getEnv("LOG_FORMAT", "json"))

	opts := &slog.HandlerOptions{Level: level, AddSource: addSource}

	var base slog.Handler
	if format == "text" {
		base = slog.NewTextHandler(os.Stdout, opts)
	} else {
		base = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(requestAttrHandler{h: base}).With("svc", "media-pipeline")

	std = logger
	slog.SetDefault(std)

	// Keep legacy log.Printf visible (no ctx → no request id).
	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(base, slog.LevelInfo).Writer())
}

// --- small helpers ---

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseLevel(s string) slog.Leveler {
	switch strings.ToLower(s) {
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

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func activeLogger() *slog.Logger {
	if std != nil {
		return std
	}
	return slog.Default()
}

// --- convenience wrappers ---

func Info(ctx context.Context, msg string, attrs ...any) {
	activeLogger().InfoContext(ctx, msg, attrs...)
}
func Warn(ctx context.Context, msg string, attrs ...any) {
	activeLogger().WarnContext(ctx, msg, attrs...)
}
func Error(ctx context.Context, msg string, attrs ...any) {
	activeLogger().ErrorContext(ctx, msg, attrs...)
}
func Debug(ctx context.Context, msg string, attrs ...any) {
	activeLogger().DebugContext(ctx, msg, attrs...)
}

func Infof(ctx context.Context, format string, a ...any) {
	activeLogger().InfoContext(ctx, fmt.Sprintf(format, a...))
}
func Errorf(ctx context.Context, format string, a ...any) {
	activeLogger().ErrorContext(ctx, fmt.Sprintf(format, a...))
}
func Warnf(ctx context.Context, format string, a ...any) {
	activeLogger().WarnContext(ctx, fmt.Sprintf(format, a...))
}
func Debugf(ctx context.Context, format string, a ...any) {
	activeLogger().DebugContext(ctx, fmt.Sprintf(format, a...))
}
