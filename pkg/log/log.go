// Package log provides structured logging for flufit on top of zerolog.
//
// Components obtain a named logger once and attach stable context with With:
//
//	logger := log.GetLoggerWithName("evaluation").With(
//		log.OutcomeKey, "BodyTemp",
//	)
//	logger.Info("Split created", log.RowsKey, n, log.SeedKey, seed)
//
// Key-value pairs are passed as alternating keys and values. The key constants in
// keys.go keep field names consistent across packages.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logger used by flufit components.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLoggerWithName(name string) Logger
}

var (
	mu       sync.RWMutex
	base     = newBase(os.Stderr, zerolog.InfoLevel)
	provider LoggerProvider = &zerologProvider{level: zerolog.InfoLevel}
)

func newBase(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetupLogger configures the process-wide logger with a human readable console writer.
// Unknown levels fall back to info.
func SetupLogger(level string) {
	lvl := ToLogLevel(level)
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	mu.Lock()
	defer mu.Unlock()
	base = newBase(out, lvl)
	provider = &zerologProvider{level: lvl}
}

// SetOutput redirects the process-wide logger, keeping its level. Used by tests and
// by the CLI when --log-json is set.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = newBase(w, base.GetLevel())
}

// ToLogLevel parses a level name. Unknown names map to info.
func ToLogLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// GetLogger returns the process-wide zerolog logger for event-style logging.
func GetLogger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// GetLoggerWithName returns a named Logger from the process-wide provider.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	p := provider
	mu.RUnlock()
	return p.GetLoggerWithName(name)
}

// LogError logs err with msg at error level.
func LogError(err error, msg string) {
	if err == nil {
		return
	}
	l := GetLogger()
	l.Error().Err(err).Msg(msg)
}

// NewZerologProvider returns a provider whose loggers log at level or above.
func NewZerologProvider(level zerolog.Level) LoggerProvider {
	return &zerologProvider{level: level}
}

type zerologProvider struct {
	level zerolog.Level
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	l := GetLogger().Level(p.level).With().Str(ComponentKey, name).Logger()
	return &zerologLogger{l: l}
}

type zerologLogger struct {
	l zerolog.Logger
}

func (z *zerologLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (z *zerologLogger) Info(msg string, keysAndValues ...interface{}) {
	z.l.Info().Fields(keysAndValues).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.l.Warn().Fields(keysAndValues).Msg(msg)
}

func (z *zerologLogger) Error(msg string, keysAndValues ...interface{}) {
	ev := z.l.Error()
	// A leading error value is attached with Err so it renders under "error".
	if len(keysAndValues) > 0 {
		if err, ok := keysAndValues[0].(error); ok {
			ev = ev.Err(err)
			keysAndValues = keysAndValues[1:]
		}
	}
	ev.Fields(keysAndValues).Msg(msg)
}

func (z *zerologLogger) With(keysAndValues ...interface{}) Logger {
	return &zerologLogger{l: z.l.With().Fields(keysAndValues).Logger()}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{l: zerolog.Nop()}
}
