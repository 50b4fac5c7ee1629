package conn

import "log"

// Logger is the minimal logging seam threaded through Engine, mirroring
// the teacher's own server/handler.Logger interface so callers can
// substitute their own structured logger without this module taking a
// dependency on one.
type Logger interface {
	Printf(format string, args ...any)
}

// defaultLogger backs Logger with the standard library's log package.
type defaultLogger struct{}

func (defaultLogger) Printf(format string, args ...any) {
	log.Printf(format, args...)
}

// DefaultLogger returns the log.Default()-backed Logger used when a
// caller doesn't supply their own.
func DefaultLogger() Logger {
	return defaultLogger{}
}
