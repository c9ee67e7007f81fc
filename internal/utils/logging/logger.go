// Package logging defines the tiny leveled logger the library logs through.
// Callers inject an implementation; everything defaults to discarding.
package logging

// Logger is a minimal formatted logger for internal library use.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// NopLogger discards all logs.
type NopLogger struct{}

// Debugf discards the log entry.
func (NopLogger) Debugf(string, ...any) {}

// Infof discards the log entry.
func (NopLogger) Infof(string, ...any) {}

// Warnf discards the log entry.
func (NopLogger) Warnf(string, ...any) {}
