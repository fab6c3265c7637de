package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger used by the realtime service. The package-level helpers keep
// call sites short; the backing logger is a zap SugaredLogger.

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar  = newSugar(zapcore.AddSync(os.Stdout))
	exitFn = os.Exit
)

func newSugar(ws zapcore.WriteSyncer) *zap.SugaredLogger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, level)
	return zap.New(core).Sugar()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Unknown values fall back to info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level.SetLevel(zapcore.FatalLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// SetCore replaces the output core. Used by tests to observe log entries.
func SetCore(core zapcore.Core) {
	mu.Lock()
	defer mu.Unlock()
	sugar = zap.New(core).Sugar()
}

// Enabled reports whether messages at lvl would be written.
func Enabled(lvl zapcore.Level) bool {
	return level.Enabled(lvl)
}

// AtomicLevel exposes the shared level so custom cores can follow Init.
func AtomicLevel() zap.AtomicLevel {
	return level
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, v ...interface{}) { get().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { get().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { get().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { get().Errorf(format, v...) }

// Fatalf logs regardless of level and exits the process.
func Fatalf(format string, v ...interface{}) {
	l := get()
	l.Desugar().Core().Write(zapcore.Entry{Level: zapcore.FatalLevel, Message: fmt.Sprintf(format, v...)}, nil) //nolint:errcheck
	_ = l.Sync()
	exitFn(1)
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { get().Debug(v) }
func Info(v string)  { get().Info(v) }
func Warn(v string)  { get().Warn(v) }
func Error(v string) { get().Error(v) }

// Sync flushes buffered entries.
func Sync() { _ = get().Sync() }

// LevelString returns the current level as text.
func LevelString() string {
	switch level.Level() {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	case zapcore.FatalLevel:
		return "fatal"
	}
	return "info"
}
