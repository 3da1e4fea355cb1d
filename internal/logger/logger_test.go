package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug)

	log.Info("connecting",
		"password", "hunter2",
		"url", "postgres://u:hunter2@db:5432/app",
		"ca", "-----BEGIN CERTIFICATE-----",
		"host", "db",
	)

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("log output leaked password: %s", out)
	}
	if strings.Contains(out, "BEGIN CERTIFICATE") {
		t.Errorf("log output leaked CA text: %s", out)
	}
	if !strings.Contains(out, `"host":"db"`) {
		t.Errorf("expected host attribute in output, got %s", out)
	}
	if strings.Count(out, Redacted) != 3 {
		t.Errorf("expected 3 redacted attributes, got %s", out)
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn)

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestInitLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgconnect.log")
	InitLogger(LevelInfo, path)
	t.Cleanup(func() {
		Close()
		Log = nil
	})

	Info("file record", "password", "s3cret")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "file record") {
		t.Errorf("expected record in log file, got %s", data)
	}
	if strings.Contains(string(data), "s3cret") {
		t.Errorf("log file leaked password: %s", data)
	}
	if LogPath != path {
		t.Errorf("LogPath = %q, want %q", LogPath, path)
	}
}
