package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the process-wide logger. It defaults to a no-op logger so packages
// can log safely before Init runs (and in tests that never call it).
var L = zap.NewNop().Sugar()

func Init(level string) {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	if lvl, err := zapcore.ParseLevel(strings.ToLower(level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	L = zap.Must(cfg.Build()).Sugar()
}
