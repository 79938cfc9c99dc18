package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Port   int    `koanf:"port"`
	AppEnv string `koanf:"app_env"`

	DatabaseURL string `koanf:"database_url"`
	JWTSecret   string `koanf:"jwt_secret"`
	CORSOrigins string `koanf:"cors_origins"`

	LLMProvider  string `koanf:"llm_provider"`
	LLMModel     string `koanf:"llm_model"`
	LLMBaseURL   string `koanf:"llm_base_url"`
	HFToken      string `koanf:"hf_token"`
	OpenAIAPIKey string `koanf:"openai_api_key"`
	GeminiAPIKey string `koanf:"gemini_api_key"`
	GeminiModel  string `koanf:"gemini_model"`

	DietPDFPath      string `koanf:"diet_pdf_path"`
	OpenFoodFactsURL string `koanf:"openfoodfacts_url"`

	R2Endpoint      string `koanf:"r2_endpoint"`
	R2AccessKey     string `koanf:"r2_access_key"`
	R2SecretKey     string `koanf:"r2_secret_key"`
	R2BucketName    string `koanf:"r2_bucket_name"`
	R2PublicBaseURL string `koanf:"r2_public_base_url"`
}

func Default() *Config {
	return &Config{
		Port:             8000,
		AppEnv:           "development",
		CORSOrigins:      "http://localhost:3000,http://localhost:5173",
		LLMProvider:      "huggingface",
		LLMModel:         "meta-llama/Meta-Llama-3-8B-Instruct",
		LLMBaseURL:       "https://router.huggingface.co/v1",
		GeminiModel:      "gemini-1.5-flash",
		DietPDFPath:      "static/healthy-diet-fact-sheet-394.pdf",
		OpenFoodFactsURL: "https://world.openfoodfacts.org/api/v0/product/%s.json",
	}
}

// Load reads .env (outside production), the optional YAML file at path, then
// overlays process environment variables (DATABASE_URL -> database_url).
func Load(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file loaded", "error", err)
		}
	}

	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

var validProviders = map[string]bool{
	"huggingface": true,
	"openai":      true,
	"gemini":      true,
}

// Validate fails fast on settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if !validProviders[c.LLMProvider] {
		return fmt.Errorf("invalid LLM_PROVIDER %q: must be one of huggingface, openai, gemini", c.LLMProvider)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// StorageEnabled reports whether every R2 setting is present.
func (c *Config) StorageEnabled() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LLMAPIKey returns the credential matching the configured provider.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.HFToken
	}
}
