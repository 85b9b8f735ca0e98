package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes"`

	// AllowOrigins feeds the CORS middleware; empty means the local dev origins.
	AllowOrigins []string `yaml:"allow_origins,omitempty"`
}

type LLMConfig struct {
	// Provider is one of "openai" (any OpenAI-compatible chat completions server), "anthropic" or "mock".
	Provider string `yaml:"provider"`

	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`

	// ChatCompletionsPath only applies to the openai provider.
	ChatCompletionsPath string `yaml:"chat_completions_path,omitempty"`

	Temperature      float64 `yaml:"temperature,omitempty"`
	PlanMaxTokens    int     `yaml:"plan_max_tokens,omitempty"`
	ProblemMaxTokens int     `yaml:"problem_max_tokens,omitempty"`
	ChatMaxTokens    int     `yaml:"chat_max_tokens,omitempty"`

	Timeout       Duration `yaml:"timeout,omitempty"`
	StreamTimeout Duration `yaml:"stream_timeout,omitempty"`

	// RequestsPerMinute throttles outbound model calls process-wide. Zero disables throttling.
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty"`
}

type TranscriptConfig struct {
	BaseURL   string   `yaml:"base_url,omitempty"`
	Language  string   `yaml:"language,omitempty"`
	MaxChars  int      `yaml:"max_chars,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty"`
	UserAgent string   `yaml:"user_agent,omitempty"`
}

type SandboxConfig struct {
	// URL is the remote execution endpoint. Empty is a misconfiguration reported per request.
	URL     string   `yaml:"url,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"`
}

type CacheConfig struct {
	RedisAddr     string   `yaml:"redis_addr,omitempty"`
	RedisPassword string   `yaml:"redis_password,omitempty"`
	RedisDB       int      `yaml:"redis_db,omitempty"`
	KeyPrefix     string   `yaml:"key_prefix,omitempty"`
	TTL           Duration `yaml:"ttl,omitempty"`
}

type SessionConfig struct {
	// ProblemTimeout bounds one transcript fetch + synthesis chain started by a concept selection.
	ProblemTimeout Duration `yaml:"problem_timeout,omitempty"`
}

type Config struct {
	Env        string           `yaml:"env"`
	HTTP       HTTPConfig       `yaml:"http"`
	LLM        LLMConfig        `yaml:"llm"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Sandbox    SandboxConfig    `yaml:"sandbox"`
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Session    SessionConfig    `yaml:"session"`
}
