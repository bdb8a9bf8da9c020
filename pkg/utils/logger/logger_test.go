package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"targetapi/pkg/models"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(&models.LogConfig{Level: "loud"})
	if err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestNewLogger_NoWriters(t *testing.T) {
	l, err := NewLogger(&models.LogConfig{})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Close()

	// Must not panic without any sink configured
	l.Info("nothing to see")
	l.Printf("fasthttp says %d", 42)
}

func TestLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "targetapi.log")
	l, err := NewLogger(&models.LogConfig{
		Level:    models.LOG_LEVEL_INFO,
		ToFile:   true,
		FilePath: path,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	l.Info("server started")
	l.Debug("hidden debug line")
	l.Error("something broke")
	if err := l.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "server started") {
		t.Errorf("Expected info line in log file, got %q", content)
	}
	if !strings.Contains(content, "something broke") {
		t.Errorf("Expected error line in log file, got %q", content)
	}
	if strings.Contains(content, "hidden debug line") {
		t.Error("Debug line should be filtered at info level")
	}
}

func TestLogger_DebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	l, err := NewLogger(&models.LogConfig{
		Level:    "DEBUG",
		ToFile:   true,
		FilePath: path,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	l.Debug("visible debug line")
	l.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "visible debug line") {
		t.Errorf("Expected debug line at debug level, got %q", string(data))
	}
}
