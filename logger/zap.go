package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapConfig configures NewZap.
type ZapConfig struct {
	Level Level
	// Console selects the colored console encoder instead of JSON.
	Console bool
	// File enables rotating file output in addition to stderr.
	File string
	// MaxSizeMB is the size at which File is rotated. Zero means 100 MB.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept. Zero keeps all.
	MaxBackups int
	// MaxAgeDays removes rotated files older than this. Zero keeps all.
	MaxAgeDays int
	Compress   bool
	// Output replaces stderr, mostly for tests.
	Output io.Writer
}

type ZapLogger struct {
	sugar  *zap.SugaredLogger
	level  zap.AtomicLevel
	closer io.Closer
}

var _ Logger = (*ZapLogger)(nil)

// NewZap creates a zap logger. When cfg.File is set the file is created
// immediately, and Close must be called to release it.
func NewZap(cfg ZapConfig) (*ZapLogger, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if cfg.Console {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(out)}

	inst := &ZapLogger{level: zap.NewAtomicLevelAt(toZapLevel(cfg.Level))}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("logger: create log directory: %w", err)
		}

		// lumberjack opens the file lazily on first write.
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("logger: open log file: %w", err)
		}
		_ = f.Close()

		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}

		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays, // days
			Compress:   cfg.Compress,
		}
		sinks = append(sinks, zapcore.AddSync(rotator))
		inst.closer = rotator
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), inst.level)
	inst.sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)).Sugar()

	return inst, nil
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// With returns a child logger sharing the level and file of l.
func (l *ZapLogger) With(keyValues ...any) Logger {
	return &ZapLogger{
		sugar: l.sugar.With(keyValues...),
		level: l.level,
	}
}

func (l *ZapLogger) Level() Level {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel:
		return ErrorLevel
	default:
		return FatalLevel
	}
}

func (l *ZapLogger) SetLevel(level Level) {
	l.level.SetLevel(toZapLevel(level))
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// Close flushes and closes the rotating log file, if any.
func (l *ZapLogger) Close() error {
	_ = l.sugar.Sync()

	if l.closer == nil {
		return nil
	}

	return l.closer.Close()
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}
