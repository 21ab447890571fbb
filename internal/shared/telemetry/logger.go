package telemetry

import (
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerOnce sync.Once
	base       *zap.Logger
)

// stdoutSink resolves os.Stdout on every write so tests can swap it.
type stdoutSink struct{}

func (stdoutSink) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdoutSink) Sync() error                 { return nil }

// Logger returns the process-wide zap logger writing JSON lines to stdout.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.LevelKey = "level"
		encCfg.MessageKey = "msg"
		encCfg.CallerKey = ""
		encCfg.StacktraceKey = ""
		encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

		core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(stdoutSink{}), zap.DebugLevel)
		base = zap.New(core)
	})
	return base
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	Logger().Info(msg, toZap(fields)...)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	Logger().Warn(msg, toZap(fields)...)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	Logger().Error(msg, toZap(fields)...)
}

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case error:
			out = append(out, zap.String(k, v.Error()))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
