// Package log provides structured logging for wpca built on zerolog.
//
// The package keeps a single process-wide logger. Libraries are quiet by
// default: the initial logger discards everything, and applications opt in
// by calling Setup or SetLogger. The package also installs a bridge so that
// warnings raised through pkg/errors.Warn are emitted as structured zerolog
// events, using the MarshalZerologObject implementations on the warning
// types.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/wpca/pkg/errors"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(io.Discard)
)

// Setup configures the global logger to write human-readable output to
// stderr at the given level and wires pkg/errors warnings into it.
// Valid levels: "debug", "info", "warn", "error". Unknown levels fall back
// to "info".
func Setup(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()

	SetLogger(l)
}

// SetLogger replaces the global logger and installs the warning bridge.
// Use this to route wpca logs into an application-owned zerolog.Logger.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()

	installWarningBridge()
}

// GetLogger returns the current global logger. The returned value is a
// copy; derive contextual loggers from it with With().
func GetLogger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// installWarningBridge routes errors.Warn into the global logger.
// Warning types implementing zerolog.LogObjectMarshaler are embedded as
// structured objects; anything else is logged with the plain error field.
func installWarningBridge() {
	errors.SetZerologWarnFunc(func(warning error) {
		l := GetLogger()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			l.Warn().EmbedObject(obj).Msg(warning.Error())
			return
		}
		l.Warn().Err(warning).Msg("warning")
	})
}
