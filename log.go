package railopt

import "go.uber.org/zap"

// logger is the process-wide sink. Its zero value (nil) is legal: every
// call site goes through L(), which falls back to zap.NewNop() so an
// application that never calls SetLogger gets silent, allocation-free
// logging rather than a nil-pointer panic.
var logger *zap.Logger

// SetLogger installs the structured log sink used by every component in
// this module. Passing nil restores the no-op sink.
func SetLogger(l *zap.Logger) {
	logger = l
}

// L returns the current log sink, or a no-op sink if none was installed.
func L() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// S is a shorthand for L().Sugar(), mirroring the teacher's zap.S() call
// sites (tal/model2.go, tal/sim.go).
func S() *zap.SugaredLogger {
	return L().Sugar()
}
