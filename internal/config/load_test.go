package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LEARNLOOP_CONFIG_PATH", "LOG_MODE", "PORT", "HTTP_ADDR", "CORS_ALLOW_ORIGINS",
		"LLM_PROVIDER", "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL", "ANTHROPIC_MODEL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "LLM_REQUESTS_PER_MINUTE", "LLM_TIMEOUT",
		"TRANSCRIPT_LANGUAGE", "TRANSCRIPT_MAX_CHARS", "MODAL_EXECUTE_URL", "SANDBOX_TIMEOUT",
		"STORE_DRIVER", "STORE_DSN", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "PROBLEM_CACHE_TTL",
	} {
		t.Setenv(k, "")
	}
	// Keep the working-directory fallback from picking up a stray config/config.yaml.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Fatalf("provider=%q", cfg.LLM.Provider)
	}
	if cfg.LLM.PlanMaxTokens != 4096 || cfg.LLM.ProblemMaxTokens != 2000 {
		t.Fatalf("token budgets=%d/%d", cfg.LLM.PlanMaxTokens, cfg.LLM.ProblemMaxTokens)
	}
	if cfg.Transcript.MaxChars != 15000 {
		t.Fatalf("max chars=%d", cfg.Transcript.MaxChars)
	}
	if cfg.Sandbox.Timeout.Duration != 60*time.Second {
		t.Fatalf("sandbox timeout=%s", cfg.Sandbox.Timeout.Duration)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("store driver=%q", cfg.Store.Driver)
	}
}

func TestLoadAnthropicKeySelectsProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != ProviderAnthropic || cfg.LLM.APIKey != "k" {
		t.Fatalf("provider=%q key=%q", cfg.LLM.Provider, cfg.LLM.APIKey)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
llm:
  provider: mock
sandbox:
  url: http://sandbox.local/run
  timeout: 10
cache:
  ttl: 1h
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LEARNLOOP_CONFIG_PATH", path)
	t.Setenv("MODAL_EXECUTE_URL", "http://override/run")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != ProviderMock || cfg.LLM.Model != "mock-1" {
		t.Fatalf("llm=%+v", cfg.LLM)
	}
	if cfg.Sandbox.URL != "http://override/run" {
		t.Fatalf("sandbox url=%q", cfg.Sandbox.URL)
	}
	if cfg.Sandbox.Timeout.Duration != 10*time.Second {
		t.Fatalf("sandbox timeout=%s", cfg.Sandbox.Timeout.Duration)
	}
	if cfg.Cache.TTL.Duration != time.Hour {
		t.Fatalf("ttl=%s", cfg.Cache.TTL.Duration)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
	// Untouched sections keep their defaults.
	if cfg.Transcript.Language != "en" {
		t.Fatalf("language=%q", cfg.Transcript.Language)
	}
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "provider", env: map[string]string{"LLM_PROVIDER": "palm"}},
		{name: "store_driver", env: map[string]string{"STORE_DRIVER": "mysql"}},
		{name: "postgres_without_dsn", env: map[string]string{"STORE_DRIVER": "postgres"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSandboxTimeoutIsCapped(t *testing.T) {
	clearEnv(t)
	t.Setenv("SANDBOX_TIMEOUT", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sandbox.Timeout.Duration != 60*time.Second {
		t.Fatalf("sandbox timeout=%s", cfg.Sandbox.Timeout.Duration)
	}
}
