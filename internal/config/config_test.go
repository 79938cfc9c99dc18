package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMProvider != "huggingface" {
		t.Errorf("expected default provider huggingface, got %q", cfg.LLMProvider)
	}
	if cfg.DietPDFPath == "" {
		t.Errorf("expected a default diet pdf path")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	dir := t.TempDir()
	path := filepath.Join(dir, "nutriscan.yml")
	yml := "port: 9000\nllm_provider: gemini\ndatabase_url: postgres://file\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMProvider != "gemini" {
		t.Errorf("expected provider from file, got %q", cfg.LLMProvider)
	}
	if cfg.DatabaseURL != "postgres://env" {
		t.Errorf("expected env to win, got %q", cfg.DatabaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}

	cfg.JWTSecret = "s"
	cfg.DatabaseURL = "postgres://x"
	cfg.LLMProvider = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestStorageEnabled(t *testing.T) {
	cfg := Default()
	if cfg.StorageEnabled() {
		t.Fatal("storage should be disabled without R2 settings")
	}
	cfg.R2Endpoint = "https://r2"
	cfg.R2AccessKey = "a"
	cfg.R2SecretKey = "b"
	cfg.R2BucketName = "scans"
	cfg.R2PublicBaseURL = "https://cdn"
	if !cfg.StorageEnabled() {
		t.Fatal("storage should be enabled")
	}
}
