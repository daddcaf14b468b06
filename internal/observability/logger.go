// Package observability initializes the CLI logger.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger used by CLI commands. Initialized by InitCLILogger;
// a no-op logger until then so library code can always log safely.
var CLILogger = zap.NewNop()

// InitCLILogger sets up console logging on stderr. Verbose lowers the level
// to debug.
func InitCLILogger(verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	CLILogger = zap.New(core)
}

// Sync flushes buffered log entries. Called before exit. Sync errors on
// stderr are expected on some platforms and ignored.
func Sync() {
	_ = CLILogger.Sync()
}
