package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/learnloop-backend/internal/platform/envutil"
)

// UnmarshalYAML accepts a Go duration string ("5s") or an integer number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(n) * time.Second
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or an integer number of seconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   2 << 20,
		},
		LLM: LLMConfig{
			Temperature:      0.2,
			PlanMaxTokens:    4096,
			ProblemMaxTokens: 2000,
			ChatMaxTokens:    2048,
			Timeout:          Duration{Duration: 90 * time.Second},
		},
		Transcript: TranscriptConfig{
			BaseURL:  "https://www.youtube.com",
			Language: "en",
			MaxChars: 15000,
			Timeout:  Duration{Duration: 20 * time.Second},
		},
		Sandbox: SandboxConfig{
			Timeout: Duration{Duration: 60 * time.Second},
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Cache: CacheConfig{
			KeyPrefix: "learnloop:problem:",
			TTL:       Duration{Duration: 24 * time.Hour},
		},
		Session: SessionConfig{
			ProblemTimeout: Duration{Duration: 2 * time.Minute},
		},
	}
}

// Load builds the config from defaults, an optional YAML file and the environment, in that order.
// The file is LEARNLOOP_CONFIG_PATH, or ./config/config.yaml when present.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("LEARNLOOP_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		// Decode over the defaults so a partial file only overrides what it names.
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)

	if v := envutil.String("PORT", ""); v != "" {
		cfg.HTTP.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	if origins := envutil.List("CORS_ALLOW_ORIGINS"); len(origins) > 0 {
		cfg.HTTP.AllowOrigins = origins
	}

	cfg.LLM.Provider = envutil.String("LLM_PROVIDER", cfg.LLM.Provider)
	if strings.TrimSpace(cfg.LLM.Provider) == "" {
		// Follow whichever credentials are present; anthropic wins because the prompts were tuned on it.
		switch {
		case envutil.String("ANTHROPIC_API_KEY", "") != "":
			cfg.LLM.Provider = ProviderAnthropic
		default:
			cfg.LLM.Provider = ProviderOpenAI
		}
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case ProviderAnthropic:
		cfg.LLM.APIKey = envutil.String("ANTHROPIC_API_KEY", cfg.LLM.APIKey)
		cfg.LLM.BaseURL = envutil.String("ANTHROPIC_BASE_URL", cfg.LLM.BaseURL)
		cfg.LLM.Model = envutil.String("ANTHROPIC_MODEL", cfg.LLM.Model)
	case ProviderOpenAI:
		cfg.LLM.APIKey = envutil.String("OPENAI_API_KEY", cfg.LLM.APIKey)
		cfg.LLM.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.LLM.BaseURL)
		cfg.LLM.Model = envutil.String("OPENAI_MODEL", cfg.LLM.Model)
	}
	cfg.LLM.RequestsPerMinute = envutil.Int("LLM_REQUESTS_PER_MINUTE", cfg.LLM.RequestsPerMinute)
	cfg.LLM.Timeout.Duration = envutil.Duration("LLM_TIMEOUT", cfg.LLM.Timeout.Duration)

	cfg.Transcript.Language = envutil.String("TRANSCRIPT_LANGUAGE", cfg.Transcript.Language)
	cfg.Transcript.MaxChars = envutil.Int("TRANSCRIPT_MAX_CHARS", cfg.Transcript.MaxChars)

	cfg.Sandbox.URL = envutil.String("MODAL_EXECUTE_URL", cfg.Sandbox.URL)
	cfg.Sandbox.Timeout.Duration = envutil.Duration("SANDBOX_TIMEOUT", cfg.Sandbox.Timeout.Duration)

	cfg.Store.Driver = envutil.String("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = envutil.String("STORE_DSN", cfg.Store.DSN)

	cfg.Cache.RedisAddr = envutil.String("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = envutil.String("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = envutil.Int("REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.TTL.Duration = envutil.Duration("PROBLEM_CACHE_TTL", cfg.Cache.TTL.Duration)
}

func normalize(cfg *Config) error {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 2 << 20
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	cfg.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.LLM.BaseURL), "/")
	cfg.LLM.Model = strings.TrimSpace(cfg.LLM.Model)
	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = "https://api.openai.com"
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "gpt-4o-mini"
		}
		if strings.TrimSpace(cfg.LLM.ChatCompletionsPath) == "" {
			cfg.LLM.ChatCompletionsPath = "/v1/chat/completions"
		}
	case ProviderAnthropic:
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "claude-sonnet-4-5-20250929"
		}
	case ProviderMock:
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "mock-1"
		}
	default:
		return fmt.Errorf("invalid llm.provider=%q (want openai, anthropic or mock)", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout.Duration <= 0 {
		cfg.LLM.Timeout = Duration{Duration: 90 * time.Second}
	}
	if cfg.LLM.StreamTimeout.Duration < 0 {
		return errors.New("invalid llm.stream_timeout")
	}
	if cfg.LLM.RequestsPerMinute < 0 {
		return errors.New("invalid llm.requests_per_minute")
	}

	cfg.Transcript.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Transcript.BaseURL), "/")
	if cfg.Transcript.BaseURL == "" {
		cfg.Transcript.BaseURL = "https://www.youtube.com"
	}
	if cfg.Transcript.MaxChars <= 0 {
		cfg.Transcript.MaxChars = 15000
	}

	cfg.Sandbox.URL = strings.TrimSpace(cfg.Sandbox.URL)
	if cfg.Sandbox.Timeout.Duration <= 0 || cfg.Sandbox.Timeout.Duration > 60*time.Second {
		cfg.Sandbox.Timeout = Duration{Duration: 60 * time.Second}
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case "", "sqlite":
		cfg.Store.Driver = "sqlite"
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			cfg.Store.DSN = "file:learnloop?mode=memory&cache=shared"
		}
	case "postgres":
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid store.driver=%q", cfg.Store.Driver)
	}

	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "learnloop:problem:"
	}
	if cfg.Session.ProblemTimeout.Duration <= 0 {
		cfg.Session.ProblemTimeout = Duration{Duration: 2 * time.Minute}
	}
	return nil
}
