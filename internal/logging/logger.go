// Package logging provides a shared logger and log utilities to be used in
// all internal packages. Sensitive values (private keys, bundle passwords)
// must never be passed to it at any level.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	atom = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	L = newLogger()
	S = L.Sugar()
)

func newLogger() *zap.Logger {
	var (
		encoder zapcore.Encoder
		writer  zapcore.WriteSyncer
	)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		writer = zapcore.Lock(os.Stderr)
		encoder = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			MessageKey: "message",

			LevelKey:    "level",
			EncodeLevel: zapcore.CapitalColorLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.ISO8601TimeEncoder,
		})
	} else {
		writer = zapcore.Lock(os.Stderr)
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(encoder, writer, atom)

	return zap.New(core)
}

// SetLevel adjusts the level of the shared logger. Accepts the zap level
// names: debug, info, warn, error.
func SetLevel(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	atom.SetLevel(parsed)

	return nil
}

func Debugf(format string, args ...interface{}) {
	S.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	S.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	S.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	S.Errorf(format, args...)
}
