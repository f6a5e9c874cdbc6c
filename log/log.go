// Package log defines the leveled logging surface of cachesim.
package log

import "go.uber.org/zap"

// Logger is the subset of zap's SugaredLogger methods the engine needs.
// *zap.SugaredLogger satisfies it directly, so hosts that already carry
// a zap logger can pass `logger.Sugar()` as-is.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// New returns the default production logger.
func New() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l.Sugar()
}

// Development returns a human-readable logger for tests and tools.
func Development() Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return l.Sugar()
}

// Nop returns a logger that discards everything.
func Nop() Logger { return zap.NewNop().Sugar() }
