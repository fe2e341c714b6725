// Package logging builds the zap logger shared by the web form and the MCP tools.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/a3tai/inspection-report/internal/config"
)

// New returns a logger for the configured mode and level.
//
// In stdio mode stdout carries the MCP protocol, so logs go to stderr and are
// dropped entirely unless debug logging was requested.
func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		return zap.NewNop(), nil
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	if level > zapcore.DebugLevel {
		zcfg.DisableStacktrace = true
	}

	logger, err := zcfg.Build(zap.Fields(
		zap.String("service", cfg.ServerName),
		zap.String("mode", cfg.Mode),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
