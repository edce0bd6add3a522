package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	// Test development mode
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize development logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Test production mode
	err = Init()
	if err != nil {
		t.Fatalf("failed to initialize production logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger = Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

// Basic logging test (slog-backed; no Sugar)
func TestLoggerBasic(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil")
	}

	ctx := context.Background()
	logger.Info(ctx, "test message", String("k", "v"))
}

func TestLoggerNamed(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}

	ctx := context.Background()
	namedLogger.Info(ctx, "test message")
}

func TestLoggerOptions(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithOptions(Options{Level: "debug", JSON: true, Output: &buf}); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { _ = Init() }()

	Get().Debug(context.Background(), "debug line", Int64("season", 7), Bool("fresh", true))
	out := buf.String()
	if !strings.Contains(out, `"msg":"debug line"`) {
		t.Fatalf("expected JSON debug record, got %q", out)
	}
	if !strings.Contains(out, `"season":7`) {
		t.Fatalf("expected int64 field, got %q", out)
	}
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	if err := InitWithOptions(Options{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	_ = Init()
}

func TestLoggerRollingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qbduel.log")
	var buf bytes.Buffer
	if err := InitWithOptions(Options{Output: &buf, File: FileOptions{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}}); err != nil {
		t.Fatalf("init: %v", err)
	}
	Get().Info(context.Background(), "to file", String("k", "v"))
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("expected record in file, got %q", data)
	}
	if !strings.Contains(buf.String(), "to file") {
		t.Fatalf("expected record on primary output, got %q", buf.String())
	}
	_ = Init()
}
