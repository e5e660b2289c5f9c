package logger

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log      *zap.Logger
	onceInit sync.Once
)

// Init builds the process logger once. Later calls return the same instance.
func Init(level string, development bool, meta ...zap.Field) (*zap.Logger, error) {
	var initErr error
	onceInit.Do(func() {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			initErr = errors.Wrapf(err, "invalid log level %q", level)
			return
		}

		instance, err := configure(lvl, development).Build(zap.AddCaller())
		if err != nil {
			initErr = errors.Wrap(err, "building zap logger")
			return
		}
		Log = instance.With(meta...)
	})

	if initErr != nil {
		return nil, initErr
	}
	if Log == nil {
		return nil, errors.New("logger not initialized")
	}
	return Log, nil
}

func configure(level zapcore.Level, development bool) zap.Config {
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "timestamp"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeCaller = zapcore.ShortCallerEncoder
	encoder.EncodeDuration = zapcore.SecondsDurationEncoder
	encoder.CallerKey = "caller"

	encoding := "json"
	if development {
		encoding = "console"
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       development,
		DisableStacktrace: !development,
		Encoding:          encoding,
		EncoderConfig:     encoder,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}
