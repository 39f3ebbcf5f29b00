package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFileLogging(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "goslm.log")

	cfg := DefaultFileConfig(logFile)
	cfg.Compress = false
	if err := InitWithFileConfig("debug", cfg, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	t.Cleanup(func() {
		Log = zap.NewNop()
		Sugar = Log.Sugar()
	})

	ForRun("part.stl").Info("layer assembled", zap.Int("layer", 3))
	Warn("hole collapsed", zap.Float64("z", 1.25))
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	text := string(data)
	for _, want := range []string{`"msg":"layer assembled"`, `"input":"part.stl"`, `"run":`, `"msg":"hole collapsed"`} {
		if !strings.Contains(text, want) {
			t.Errorf("log file should contain %s:\n%s", want, text)
		}
	}
}

func TestDefaultLoggerDiscards(t *testing.T) {
	// must not panic before Init
	Info("ignored")
	Error("ignored")
}
