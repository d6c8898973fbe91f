// Package logging builds the structured logger used by the CLI entry points
// and the daemon. The engine itself stays silent; the durable decision log is
// its audit trail.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// #region logger

// New returns a logger writing to stderr so stdout stays reserved for the
// decision JSON the host parses.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// #endregion logger
