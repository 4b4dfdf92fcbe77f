package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFileConfig("warn", FileConfig{}, &buf); err != nil {
		t.Fatal(err)
	}
	Log.Info("hidden")
	Log.Warn("shown")
	Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q", out)
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFileConfig("loud", FileConfig{}, &buf); err != nil {
		t.Fatal(err)
	}
	Log.Debug("debug")
	Log.Info("info")
	if out := buf.String(); strings.Contains(out, "debug") || !strings.Contains(out, "info") {
		t.Errorf("output = %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilekit.log")
	cfg := DefaultFileConfig(path)
	cfg.Compress = false
	if err := InitWithFileConfig("debug", cfg, nil); err != nil {
		t.Fatal(err)
	}
	Named("renderer").Debug("prepared tile", zap.String("tile", "0/0/0.glb"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, data)
	}
	if entry["msg"] != "prepared tile" || entry["tile"] != "0/0/0.glb" || entry["logger"] != "renderer" {
		t.Errorf("entry = %v", entry)
	}
}
