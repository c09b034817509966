// Package sgnllog provides the process-wide structured logger shared by the
// authorization client and both host adapters. It wraps log/slog the same
// way the teacher's integrations/lib/logger package does: a package-level
// Init/Setup pair, a context-carrying helper, and a syslog-aligned level
// enum (sgnl_log_level_t in the C original).
package sgnllog

import (
	"context"
	"io"
	"log/slog"
	"log/syslog"
	"os"

	"github.com/gravitational/trace"
)

// Level mirrors sgnl_log_level_t (original_source/src/c/common/logging.h),
// syslog-aligned so a given minimum level admits every level at or below it
// in severity.
type Level int

const (
	LevelEmergency Level = 0
	LevelAlert     Level = 1
	LevelCritical  Level = 2
	LevelError     Level = 3
	LevelWarning   Level = 4
	LevelNotice    Level = 5
	LevelInfo      Level = 6
	LevelDebug     Level = 7
)

func levelFromString(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "notice":
		return LevelNotice
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	case "critical":
		return LevelCritical
	case "alert":
		return LevelAlert
	case "emergency":
		return LevelEmergency
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch {
	case l >= LevelDebug:
		return slog.LevelDebug
	case l >= LevelInfo:
		return slog.LevelInfo
	case l >= LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Config configures the process-wide logger. Destination, Structured, and
// the timestamp/pid flags mirror sgnl_logger_config_t.
type Config struct {
	MinLevel         Level
	UseSyslog        bool
	Facility         string // syslog facility name; "local0" matches the C original's default
	Structured       bool
	IncludeTimestamp bool
	IncludePID       bool
	Output           io.Writer // test hook; defaults to os.Stderr. Ignored when UseSyslog is true.
}

// DefaultConfig matches the C original's compile-time defaults.
func DefaultConfig() Config {
	return Config{
		MinLevel:         LevelInfo,
		UseSyslog:        false,
		Facility:         "local0",
		Structured:       false,
		IncludeTimestamp: true,
		IncludePID:       true,
	}
}

// syslogFacility maps the config's facility name to a syslog.Priority,
// falling back to LOG_LOCAL0 for anything unrecognized.
func syslogFacility(name string) syslog.Priority {
	switch name {
	case "auth", "authpriv":
		return syslog.LOG_AUTHPRIV
	case "daemon":
		return syslog.LOG_DAEMON
	case "local0":
		return syslog.LOG_LOCAL0
	case "local1":
		return syslog.LOG_LOCAL1
	case "user":
		return syslog.LOG_USER
	default:
		return syslog.LOG_LOCAL0
	}
}

// ConfigFromLevelString builds a Config from the config file's log_level
// string plus the debug flag, the way libsgnl's sgnl_client_create does
// (debug_enabled forces the minimum level to SGNL_LOG_DEBUG regardless of
// the configured log_level).
func ConfigFromLevelString(levelStr string, debug bool) Config {
	cfg := DefaultConfig()
	cfg.MinLevel = levelFromString(levelStr)
	if debug {
		cfg.MinLevel = LevelDebug
	}
	return cfg
}

var current *slog.Logger

// Init installs a logger with DefaultConfig. Intended for the window
// before a configuration file has been parsed (e.g. cgo shim load time,
// CLI startup) — callers should call Setup with the resolved Config as
// soon as configuration is available.
func Init() {
	current = build(DefaultConfig())
}

// Setup installs a logger built from cfg, returning it for convenience.
func Setup(cfg Config) *slog.Logger {
	current = build(cfg)
	return current
}

func build(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.UseSyslog {
		if w, err := syslog.New(syslogFacility(cfg.Facility)|syslog.LOG_INFO, "sgnl"); err == nil {
			out = w
		}
	}
	opts := &slog.HandlerOptions{Level: cfg.MinLevel.slogLevel()}
	if !cfg.IncludeTimestamp {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	logger := slog.New(handler)
	if cfg.IncludePID {
		logger = logger.With("pid", os.Getpid())
	}
	return logger
}

type contextKey struct{}

// WithLogger attaches logger to ctx for retrieval by Get.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// Get returns the logger attached to ctx, falling back to the process-wide
// logger (installed by Init/Setup), then to slog.Default.
func Get(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if current != nil {
		return current
	}
	return slog.Default()
}

// Context mirrors sgnl_log_context_t: the component/function/request/
// principal/asset/action tuple attached to every structured message.
type Context struct {
	Component   string
	Function    string
	RequestID   string
	PrincipalID string
	AssetID     string
	Action      string
}

// With returns a logger with ctx's fields attached, omitting empty ones.
func (c Context) With(logger *slog.Logger) *slog.Logger {
	args := []any{"component", c.Component}
	if c.Function != "" {
		args = append(args, "function", c.Function)
	}
	if c.RequestID != "" {
		args = append(args, "request_id", c.RequestID)
	}
	if c.PrincipalID != "" {
		args = append(args, "principal_id", c.PrincipalID)
	}
	if c.AssetID != "" {
		args = append(args, "asset_id", c.AssetID)
	}
	if c.Action != "" {
		args = append(args, "action", c.Action)
	}
	return logger.With(args...)
}

// enabled reports whether the process-wide logger admits level.
func enabled(level slog.Level) bool {
	l := current
	if l == nil {
		l = slog.Default()
	}
	return l.Enabled(context.Background(), level)
}

// SecureDebugf is a no-op unless the process-wide minimum level admits
// debug. Every call site that would otherwise print a token, a decision
// detail, or a per-user payload above debug severity uses this instead of
// Info/Debug directly (sgnl_log_secure_debug in the C original's intent,
// SGNL_LOG_SECURE_DEBUG macro).
func SecureDebugf(ctx Context, logger *slog.Logger, msg string, args ...any) {
	if !enabled(slog.LevelDebug) {
		return
	}
	ctx.With(logger).Debug(msg, args...)
}

// Errorf wraps err with trace and logs it at error level with ctx's fields,
// returning the wrapped error so call sites can both log and propagate in
// one line.
func Errorf(ctx Context, logger *slog.Logger, err error, msg string, args ...any) error {
	wrapped := trace.WrapWithMessage(err, msg, args...)
	ctx.With(logger).Error(msg, append(args, "error", wrapped.Error())...)
	return wrapped
}
