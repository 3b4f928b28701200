package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"ENV", "PORT", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "OCR_FORCE", "UPLOAD_MAX_BYTES", "ALLOW_GUESTS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.RateLimitRequests != 20 || cfg.RateLimitWindow != time.Minute {
		t.Fatalf("unexpected rate limit defaults: %d per %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.OCR.Force {
		t.Fatalf("expected OCR force off by default")
	}
	if cfg.OCR.ProbeTimeout != 5*time.Second {
		t.Fatalf("unexpected probe timeout: %s", cfg.OCR.ProbeTimeout)
	}
	if cfg.UploadMaxBytes != 50*1000*1000 {
		t.Fatalf("unexpected upload cap: %d", cfg.UploadMaxBytes)
	}
	if !cfg.AllowGuests {
		t.Fatalf("expected guests allowed outside production")
	}
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("RATE_LIMIT_WINDOW", "30")
	t.Setenv("OCR_TIMEOUT", "2m")
	t.Setenv("EXTRACTION_KEEP_HISTORY", "true")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")
	t.Setenv("ALLOW_GUESTS", "")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("expected bare integer seconds, got %s", cfg.RateLimitWindow)
	}
	if cfg.OCR.Timeout != 2*time.Minute {
		t.Fatalf("unexpected OCR timeout: %s", cfg.OCR.Timeout)
	}
	if !cfg.Extraction.KeepHistory {
		t.Fatalf("expected keep history")
	}
	if cfg.Worker.Concurrency != 4 {
		t.Fatalf("expected fallback concurrency, got %d", cfg.Worker.Concurrency)
	}
	if cfg.AllowGuests {
		t.Fatalf("expected guests disabled in production")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RABBITMQ_QUEUE=jobs.from.file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("RABBITMQ_QUEUE", "")
	os.Unsetenv("RABBITMQ_QUEUE")

	cfg := Load()
	if cfg.RabbitMQQueue != "jobs.from.file" {
		t.Fatalf("expected queue from .env, got %q", cfg.RabbitMQQueue)
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
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
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
