package logger

import "sync/atomic"

var defLogger atomic.Value

func init() {
	defLogger.Store(loggerBox{NewSlog(InfoLevel, false)})
}

// loggerBox keeps the stored concrete type constant for atomic.Value.
type loggerBox struct {
	Logger
}

func Debug(msg string, keysAndValues ...any) {
	GetLogger().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	GetLogger().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	GetLogger().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	GetLogger().Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	GetLogger().Fatal(msg, keysAndValues...)
}

func SetLevel(level Level) {
	GetLogger().SetLevel(level)
}

// GetLogger returns the package default logger.
func GetLogger() Logger {
	box, _ := defLogger.Load().(loggerBox)

	return box.Logger
}

// SetLogger replaces the package default logger. A nil l is ignored.
func SetLogger(l Logger) {
	if l == nil {
		return
	}

	defLogger.Store(loggerBox{l})
}

func With(keyValues ...any) Logger {
	return GetLogger().With(keyValues...)
}
