// Package config holds the YAML-backed configuration for the sift research
// runtime. Every section follows the SetDefaults/Validate pattern so that a
// zero value config file still produces a runnable setup.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLMProviderConfig configures a chat/completion provider.
type LLMProviderConfig struct {
	Type        string  `yaml:"type"` // "anthropic" or "openai"
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Host        string  `yaml:"host"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     int     `yaml:"timeout"`     // seconds
	MaxRetries  int     `yaml:"max_retries"` // HTTP-level retries
	RetryDelay  int     `yaml:"retry_delay"` // seconds, base backoff delay
}

// SetDefaults applies defaults for unset fields.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "anthropic"
	}
	if c.Model == "" {
		switch c.Type {
		case "openai":
			c.Model = "gpt-4o"
		default:
			c.Model = "claude-sonnet-4-20250514"
		}
	}
	if c.APIKey == "" {
		switch c.Type {
		case "openai":
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 1.0
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout == 0 {
		c.Timeout = 120
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2
	}
}

// Validate checks the configuration for consistency.
func (c *LLMProviderConfig) Validate() error {
	switch c.Type {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unsupported LLM provider type: %s", c.Type)
	}
	if c.APIKey == "" {
		return fmt.Errorf("API key is required for %s", c.Type)
	}
	return nil
}

// EmbedderProviderConfig configures the embedding provider used by the
// document index.
type EmbedderProviderConfig struct {
	Type       string `yaml:"type"` // "openai" or "local"
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Host       string `yaml:"host"`
	Dimension  int    `yaml:"dimension"`
	Timeout    int    `yaml:"timeout"` // seconds
	MaxRetries int    `yaml:"max_retries"`
	BatchSize  int    `yaml:"batch_size"`
}

func (c *EmbedderProviderConfig) SetDefaults() {
	if c.Type == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.Type = "openai"
			c.APIKey = key
		} else {
			c.Type = "local"
		}
	}
	if c.Type == "openai" && c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.Dimension == 0 {
		switch c.Type {
		case "openai":
			c.Dimension = 1536
		default:
			c.Dimension = 256
		}
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
}

func (c *EmbedderProviderConfig) Validate() error {
	switch c.Type {
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("API key is required for the openai embedder")
		}
	case "local":
	default:
		return fmt.Errorf("unsupported embedder type: %s", c.Type)
	}
	return nil
}

// VectorConfig selects the vector store backing the document index.
type VectorConfig struct {
	Type    string `yaml:"type"` // "chromem" or "qdrant"
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	APIKey  string `yaml:"api_key"`
	UseTLS  bool   `yaml:"use_tls"`
	Timeout int    `yaml:"timeout"` // seconds
}

func (c *VectorConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "chromem"
	}
	if c.Type == "qdrant" {
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == 0 {
			c.Port = 6334
		}
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
}

func (c *VectorConfig) Validate() error {
	switch c.Type {
	case "chromem", "qdrant":
		return nil
	default:
		return fmt.Errorf("unsupported vector store type: %s", c.Type)
	}
}

// CacheConfig configures the content-addressed document index cache.
type CacheConfig struct {
	Dir          string `yaml:"dir"`
	ChunkSize    int    `yaml:"chunk_size"`    // characters per passage
	ChunkOverlap int    `yaml:"chunk_overlap"` // characters shared between passages
	TopK         int    `yaml:"top_k"`         // passages returned per document query
	FetchTimeout int    `yaml:"fetch_timeout"` // seconds, document byte fetch
}

func (c *CacheConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = ".sift/docindex"
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 2000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = c.ChunkSize / 5
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 60
	}
}

// RenderConfig configures the headless page renderer.
type RenderConfig struct {
	Timeout   int    `yaml:"timeout"`   // seconds per page load
	MaxChars  int    `yaml:"max_chars"` // cap on extracted inner text
	UserAgent string `yaml:"user_agent"`
}

func (c *RenderConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.MaxChars == 0 {
		c.MaxChars = 40000
	}
	if c.UserAgent == "" {
		c.UserAgent = "sift/1.0 (+https://github.com/sift-dev/sift)"
	}
}

// AgentConfig bounds a single research run.
type AgentConfig struct {
	MaxRounds    int    `yaml:"max_rounds"`    // 0 = unbounded, budget owned by the caller
	ContextLimit int    `yaml:"context_limit"` // token budget for assembled conversations
	SnapshotPath string `yaml:"snapshot_path"` // optional state snapshot file
	CallTimeout  int    `yaml:"call_timeout"`  // seconds per tool call
}

func (c *AgentConfig) SetDefaults() {
	if c.MaxRounds == 0 {
		c.MaxRounds = 30
	}
	if c.ContextLimit == 0 {
		c.ContextLimit = 100000
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 120
	}
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "simple" or "verbose"
	File   string `yaml:"file"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Config is the root configuration document.
type Config struct {
	LLM      LLMProviderConfig      `yaml:"llm"`
	Embedder EmbedderProviderConfig `yaml:"embedder"`
	Vector   VectorConfig           `yaml:"vector"`
	Cache    CacheConfig            `yaml:"cache"`
	Render   RenderConfig           `yaml:"render"`
	Agent    AgentConfig            `yaml:"agent"`
	Logging  LoggingConfig          `yaml:"logging"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.Vector.SetDefaults()
	c.Cache.SetDefaults()
	c.Render.SetDefaults()
	c.Agent.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Embedder.Validate(); err != nil {
		return err
	}
	return c.Vector.Validate()
}

// Load reads a YAML config file, expanding ${VAR} references against the
// environment. A .env file in the working directory is loaded first, if
// present, so config files can reference keys stored there.
func Load(path string) (*Config, error) {
	// Missing .env is fine; it is a convenience, not a requirement.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.SetDefaults()
	return cfg, nil
}

// Default returns a config with all defaults applied and no file loaded.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
