package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	log, err := New("WARN", "production")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info must be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("error must be enabled at warn level")
	}

	if _, err := New("debug", "dev"); err != nil {
		t.Fatalf("dev logger: %v", err)
	}
	if _, err := New("loud", "dev"); err == nil {
		t.Fatal("expected invalid level error")
	}
}
