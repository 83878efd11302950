package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.OpenAI.Model != "gpt-4.1-mini" {
		t.Errorf("model = %s", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.MaxTokens != 100 {
		t.Errorf("max_tokens = %d, want 100", cfg.OpenAI.MaxTokens)
	}
	if cfg.OpenAI.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("base_url = %s", cfg.OpenAI.BaseURL)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("log level = %s", cfg.Logger.Level)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_MAX_TOKENS", "250")
	t.Setenv("OPENAI_TIMEOUT", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s, want 9090", cfg.Server.Port)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("api key = %s", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("model = %s", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.MaxTokens != 250 {
		t.Errorf("max_tokens = %d", cfg.OpenAI.MaxTokens)
	}
	if cfg.OpenAI.Timeout != 15*time.Second {
		t.Errorf("timeout = %s", cfg.OpenAI.Timeout)
	}
}
