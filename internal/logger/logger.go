// Package logger builds the process logger: one JSON object per line with
// ts, level and msg keys, timestamps rendered in the configured location.
package logger

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing to stdout at the given level ("debug",
// "info", "warn", "error"). Unknown levels fall back to info.
func New(level string, loc *time.Location) *zap.Logger {
	return NewWithWriter(os.Stdout, level, loc)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string, loc *time.Location) *zap.Logger {
	if loc == nil {
		loc = time.Local
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      zapcore.OmitKey,
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.In(loc).Format(time.RFC3339Nano))
		},
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core)
}

// LoadLocation resolves a timezone name, falling back to time.Local.
func LoadLocation(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}
