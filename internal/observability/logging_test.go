package observability

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/autoresolve/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	app := config.AppConfig{Name: "autoresolve", Env: "test", Version: "dev"}

	logger, err := NewLogger(config.LoggerConfig{Level: "DEBUG"}, app)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled")
	}

	logger, err = NewLogger(config.LoggerConfig{Level: "verbose"}, app)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) || !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("unknown level should fall back to info")
	}
}
