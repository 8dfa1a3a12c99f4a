package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log = zap.NewNop()
)

// Init builds the process-wide logger. Production gets JSON output,
// everything else a colored console encoder.
func Init(environment string) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.TimeKey = "timestamp"
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Development = false
	}

	built, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return
	}

	Set(built)
}

// Set replaces the process-wide logger, used by tests to capture output.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With returns a child logger carrying the given key/value pairs.
func With(args ...any) *zap.Logger {
	return L().With(fields(args)...)
}

func Debug(msg string, args ...any) {
	L().Debug(msg, fields(args)...)
}

func Info(msg string, args ...any) {
	L().Info(msg, fields(args)...)
}

func Warn(msg string, args ...any) {
	L().Warn(msg, fields(args)...)
}

func Error(msg string, args ...any) {
	L().Error(msg, fields(args)...)
}

func Fatal(msg string, args ...any) {
	L().Fatal(msg, fields(args)...)
}

func Sync() {
	_ = L().Sync()
}

// fields turns loose arguments into zap fields. Key/value pairs are read
// left to right; a bare error becomes zap.Error and any other dangling
// value is logged under "detail".
func fields(args []any) []zap.Field {
	out := make([]zap.Field, 0, len(args))

	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case zap.Field:
			out = append(out, v)
		case error:
			out = append(out, zap.Error(v))
		case string:
			if i+1 < len(args) {
				out = append(out, zap.Any(v, args[i+1]))
				i++
				continue
			}
			out = append(out, zap.String("detail", v))
		default:
			out = append(out, zap.Any("detail", v))
		}
	}

	return out
}
