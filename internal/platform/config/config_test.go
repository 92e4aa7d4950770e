package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ragstream/internal/platform/config"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.API.Endpoint(cfg.API.UploadPath) != "http://localhost:8000/upload" {
		t.Fatalf("unexpected upload endpoint %s", cfg.API.Endpoint(cfg.API.UploadPath))
	}
	if cfg.Stream.URL != "ws://localhost:8000/ws/stream" {
		t.Fatalf("unexpected stream url %s", cfg.Stream.URL)
	}
	if cfg.DBPath() != filepath.Join(".ragstream", "ragstream.db") {
		t.Fatalf("unexpected db path %s", cfg.DBPath())
	}
}

func TestLoadToleratesMissingDefaultFile(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := config.Load(config.DefaultFile)
	if err != nil {
		t.Fatalf("load with absent default file: %v", err)
	}
	if cfg.Stream.URL != "ws://localhost:8000/ws/stream" {
		t.Fatalf("unexpected stream url %s", cfg.Stream.URL)
	}
}

func TestLoadRejectsMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := config.Load("custom.yaml"); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "ragstream.yaml")
	body := "api:\n  baseUrl: http://docs.internal:9000/\n  requestTimeout: 30s\nstream:\n  url: wss://docs.internal/ws/stream\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RAGSTREAM_DATA_DIR", filepath.Join(dir, "state"))
	t.Setenv("RAGSTREAM_REQUEST_TIMEOUT", "45s")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.API.Endpoint("/vector_status"); got != "http://docs.internal:9000/vector_status" {
		t.Fatalf("expected trimmed base url join, got %s", got)
	}
	if cfg.API.RequestTimeout != 45*time.Second {
		t.Fatalf("env override should win over file, got %s", cfg.API.RequestTimeout)
	}
	if cfg.Storage.DataDir != filepath.Join(dir, "state") {
		t.Fatalf("data dir override missing: %s", cfg.Storage.DataDir)
	}
	if cfg.LogPath() != filepath.Join(dir, "state", "ragstream.log") {
		t.Fatalf("log path should live under data dir, got %s", cfg.LogPath())
	}
}

func TestLoadRejectsBadURLs(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RAGSTREAM_STREAM_URL", "http://localhost:8000/ws/stream")
	if _, err := config.Load(""); err == nil {
		t.Fatalf("expected non-websocket stream url to fail validation")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
