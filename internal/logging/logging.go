// Package logging constructs the zap.SugaredLogger shared by the
// cmd/better subcommands. The engine, materializer, and gc packages each
// declare their own narrow Infow/Debugw/Warnw interface rather than
// importing zap directly; *zap.SugaredLogger satisfies all of them
// structurally.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console-encoded SugaredLogger. verbose enables debug-level
// output; otherwise the floor is info.
func New(verbose bool) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = ""

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Noop returns a logger that discards everything, for callers (tests,
// library embedders) that don't want cmd/better's console formatting.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
