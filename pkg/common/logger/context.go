package logger

// LoggerContext accumulates attributes over the course of an operation so
// that later log lines carry everything learned so far (e.g. the remote
// address, then the session id). It is not safe for concurrent use.
type LoggerContext struct {
	*Logger
}

// NewLoggerContext wraps l so attributes can be appended with Add.
func NewLoggerContext(l *Logger) *LoggerContext {
	return &LoggerContext{Logger: l}
}

// Add appends key/value pairs to every subsequent record.
func (lc *LoggerContext) Add(args ...any) {
	lc.Logger = lc.Logger.With(args...)
}
