package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Log levels accepted by the log_level setting.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Output encodings accepted by the log_format setting.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call fixes level and format;
// later calls return the same instance.
func Get(level string, format ...string) *Logger {
	once.Do(func() {
		f := FormatConsole
		if len(format) > 0 && format[0] != "" {
			f = format[0]
		}
		globalLogger = newZapLogger(level, f)
	})
	return globalLogger
}

// Nop returns a logger that discards everything. Components fall back to it
// when constructed without a logger, mostly in tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With("component", component)}
}
