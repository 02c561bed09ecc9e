package logging

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink is the leveled logging surface consumed by the bridge.
// Log is the general-purpose level and maps to debug.
type Sink interface {
	Trace(format string, args ...any)
	Log(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var (
	mu     sync.RWMutex
	global = newLogger(DefaultConfig())
)

// Per-logger levels decide what is written; zerolog's global floor would
// otherwise drop trace events.
func init() {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func newLogger(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	ctx := zerolog.New(writer).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger().Level(cfg.Level)
}

// Apply replaces the process-wide logger.
func Apply(cfg Config) {
	l := newLogger(cfg)
	mu.Lock()
	global = l
	mu.Unlock()
}

// SetLevel changes verbosity of the process-wide logger in place.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	global = global.Level(level)
	mu.Unlock()
}

// Level reports the current process-wide verbosity.
func Level() zerolog.Level {
	mu.RLock()
	defer mu.RUnlock()
	return global.GetLevel()
}

// Logger returns a copy of the process-wide zerolog logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Tracef(format string, args ...any) { current().Trace().Msgf(format, args...) }
func Logf(format string, args ...any)   { current().Debug().Msgf(format, args...) }
func Infof(format string, args ...any)  { current().Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { current().Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { current().Error().Msgf(format, args...) }

func current() *zerolog.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	return &l
}

type globalSink struct{}

// Default returns a Sink writing through the process-wide logger.
func Default() Sink {
	return globalSink{}
}

func (globalSink) Trace(format string, args ...any) { Tracef(format, args...) }
func (globalSink) Log(format string, args ...any)   { Logf(format, args...) }
func (globalSink) Info(format string, args ...any)  { Infof(format, args...) }
func (globalSink) Warn(format string, args ...any)  { Warnf(format, args...) }
func (globalSink) Error(format string, args ...any) { Errorf(format, args...) }

// ZeroSink adapts a dedicated zerolog logger into a Sink.
type ZeroSink struct {
	L zerolog.Logger
}

func (s ZeroSink) Trace(format string, args ...any) { s.L.Trace().Msgf(format, args...) }
func (s ZeroSink) Log(format string, args ...any)   { s.L.Debug().Msgf(format, args...) }
func (s ZeroSink) Info(format string, args ...any)  { s.L.Info().Msgf(format, args...) }
func (s ZeroSink) Warn(format string, args ...any)  { s.L.Warn().Msgf(format, args...) }
func (s ZeroSink) Error(format string, args ...any) { s.L.Error().Msgf(format, args...) }
