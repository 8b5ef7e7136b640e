package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger

	mu sync.RWMutex
)

func init() {
	// Info level, JSON to stderr until Init is called from the CLI
	setLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// ParseLevel maps a config/flag string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether level is one of debug, info, warn, error.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Init configures the global logger. With pretty set, output is a
// human-readable console stream instead of JSON lines.
func Init(level string, pretty bool) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	var output io.Writer = os.Stderr
	if pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}

	setLogger(zerolog.New(output).With().Timestamp().Caller().Logger())
}

// SetOutput redirects the global logger, keeping the current level.
// Tests use it to capture diagnostics.
func SetOutput(w io.Writer) {
	setLogger(zerolog.New(w).With().Timestamp().Logger())
}

func setLogger(l zerolog.Logger) {
	mu.Lock()
	Logger = l
	log.Logger = l
	mu.Unlock()
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := Logger
	return &l
}

// WithComponent returns a logger with a component field set
func WithComponent(component string) *zerolog.Logger {
	l := Get().With().Str("component", component).Logger()
	return &l
}

// WithWindow returns a component logger that also carries the window id.
func WithWindow(component string, id int) *zerolog.Logger {
	l := WithComponent(component).With().Int("window_id", id).Logger()
	return &l
}
