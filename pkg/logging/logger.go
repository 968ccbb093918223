// Package logging configures zerolog for the admin client and its CLI.
//
// Setup installs the process logger once; every package then derives a
// component logger with NewLogger so log lines can be filtered by the
// "component" field.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelDisabled turns logging off.
	LevelDisabled LogLevel = "disabled"
)

// levels maps accepted spellings onto zerolog levels.
var levels = map[string]zerolog.Level{
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"disabled": zerolog.Disabled,
	"off":      zerolog.Disabled,
	"none":     zerolog.Disabled,
}

// ParseLevel validates a configured level name. Matching is case-insensitive.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if _, ok := levels[name]; !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return LogLevel(name), nil
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output. Unknown levels mean info.
	Level LogLevel

	// Pretty selects console output for terminals instead of JSON lines.
	Pretty bool

	// Output defaults to os.Stderr so command output on stdout stays clean.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Component loggers created
// afterwards with NewLogger inherit its output.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	if l, ok := levels[strings.ToLower(string(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// RestyLogger adapts a zerolog.Logger to the Errorf/Warnf/Debugf logger
// interface expected by the HTTP transport.
type RestyLogger struct {
	logger zerolog.Logger
}

// NewRestyLogger wraps logger.
func NewRestyLogger(logger zerolog.Logger) *RestyLogger {
	return &RestyLogger{logger: logger}
}

func (l *RestyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *RestyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *RestyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Outgoing request metadata (method, endpoint)
//   - Superseded table loads being discarded
//   - Cancelled requests
//
// Info: Normal operation events
//   - Login / logout
//   - Feature flag refreshes
//   - Exports
//
// Warn: Warning conditions that don't prevent operation
//   - Session expired (401)
//   - Feature disabled by the server (404 sentinel)
//   - Store persistence failures (state kept in memory)
//
// Error: Error conditions requiring attention
//   - Network failures
//   - Table load failures surfaced to the caller
//
// Context Fields:
//   - component: emitting package ("client", "session", "table", ...)
//   - endpoint: API path
//   - status: HTTP status code
//   - code: envelope or payload error code
//   - kind: error kind (api, http, feature_disabled, session_expired, network)
//   - loader: table loader name
