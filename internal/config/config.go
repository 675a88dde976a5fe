// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	VPN        VPNConfig        `mapstructure:"vpn" yaml:"vpn"`
	Identity   IdentityConfig   `mapstructure:"identity" yaml:"identity"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the driven browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	TargetURL         string        `mapstructure:"target_url" yaml:"target_url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// ActionWeights are the per-item interaction probabilities. They need not
// sum to 1; the remainder is the chance of taking no action at all.
type ActionWeights struct {
	Like        float64 `mapstructure:"like" yaml:"like"`
	Repost      float64 `mapstructure:"repost" yaml:"repost"`
	Reply       float64 `mapstructure:"reply" yaml:"reply"`
	Quote       float64 `mapstructure:"quote" yaml:"quote"`
	Follow      float64 `mapstructure:"follow" yaml:"follow"`
	LikeComment float64 `mapstructure:"like_comment" yaml:"like_comment"`
}

// SimulationConfig tunes the per-account browsing session.
type SimulationConfig struct {
	MaxActions            int           `mapstructure:"max_actions" yaml:"max_actions"`
	MinItemLength         int           `mapstructure:"min_item_length" yaml:"min_item_length"`
	EmptyScrollThreshold  int           `mapstructure:"empty_scroll_threshold" yaml:"empty_scroll_threshold"`
	MaxThreadInteractions int           `mapstructure:"max_thread_interactions" yaml:"max_thread_interactions"`
	ThreadScrollsMin      int           `mapstructure:"thread_scrolls_min" yaml:"thread_scrolls_min"`
	ThreadScrollsMax      int           `mapstructure:"thread_scrolls_max" yaml:"thread_scrolls_max"`
	CooldownMin           time.Duration `mapstructure:"cooldown_min" yaml:"cooldown_min"`
	CooldownMax           time.Duration `mapstructure:"cooldown_max" yaml:"cooldown_max"`
	Probabilities         ActionWeights `mapstructure:"probabilities" yaml:"probabilities"`
}

// LLMProvider defines the supported completion providers.
type LLMProvider string

const (
	ProviderMistral LLMProvider = "mistral"
	ProviderGemini  LLMProvider = "gemini"
)

// LLMConfig defines the configuration for the completion capability.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	PromptFile  string        `mapstructure:"prompt_file" yaml:"prompt_file"`
	// RequestsPerMinute caps outbound completion calls; 0 disables the limiter.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// VPNConfig configures egress rotation via the NordVPN CLI.
type VPNConfig struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	PreferredLocation string        `mapstructure:"preferred_location" yaml:"preferred_location"`
	FallbackLocations []string      `mapstructure:"fallback_locations" yaml:"fallback_locations"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	KillWait          time.Duration `mapstructure:"kill_wait" yaml:"kill_wait"`
	ReconnectWait     time.Duration `mapstructure:"reconnect_wait" yaml:"reconnect_wait"`
	SettleWait        time.Duration `mapstructure:"settle_wait" yaml:"settle_wait"`
	// AbortOnFailure stops the identity instead of proceeding unrotated.
	AbortOnFailure bool `mapstructure:"abort_on_failure" yaml:"abort_on_failure"`
}

// IdentityConfig points at the token source and the metadata store.
type IdentityConfig struct {
	TokensFile string `mapstructure:"tokens_file" yaml:"tokens_file"`
	StoreFile  string `mapstructure:"store_file" yaml:"store_file"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "drifter-cli")
	v.SetDefault("logger.log_file", "drifter.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.target_url", "https://x.com/")
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.action_timeout", "10s")

	// -- Simulation --
	v.SetDefault("simulation.max_actions", 20)
	v.SetDefault("simulation.min_item_length", 20)
	v.SetDefault("simulation.empty_scroll_threshold", 5)
	v.SetDefault("simulation.max_thread_interactions", 3)
	v.SetDefault("simulation.thread_scrolls_min", 2)
	v.SetDefault("simulation.thread_scrolls_max", 5)
	v.SetDefault("simulation.cooldown_min", "15s")
	v.SetDefault("simulation.cooldown_max", "30s")
	v.SetDefault("simulation.probabilities.like", 0.40)
	v.SetDefault("simulation.probabilities.repost", 0.10)
	v.SetDefault("simulation.probabilities.reply", 0.15)
	v.SetDefault("simulation.probabilities.quote", 0.05)
	v.SetDefault("simulation.probabilities.follow", 0.05)
	v.SetDefault("simulation.probabilities.like_comment", 0.05)

	// -- LLM --
	v.SetDefault("llm.provider", "mistral")
	v.SetDefault("llm.model", "mistral-small-latest")
	v.SetDefault("llm.endpoint", "https://api.mistral.ai/v1/chat/completions")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.8)
	v.SetDefault("llm.max_tokens", 256)
	v.SetDefault("llm.prompt_file", "prompts/default_prompt.txt")
	v.SetDefault("llm.requests_per_minute", 10.0)

	// -- VPN --
	v.SetDefault("vpn.enabled", false)
	v.SetDefault("vpn.preferred_location", "United States")
	v.SetDefault("vpn.fallback_locations", []string{"Germany", "United Kingdom", "Canada"})
	v.SetDefault("vpn.max_retries", 3)
	v.SetDefault("vpn.kill_wait", "5s")
	v.SetDefault("vpn.reconnect_wait", "15s")
	v.SetDefault("vpn.settle_wait", "5s")
	v.SetDefault("vpn.abort_on_failure", false)

	// -- Identity --
	v.SetDefault("identity.tokens_file", "cookies/auth_tokens.txt")
	v.SetDefault("identity.store_file", "cookies/accounts.json")
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "DRIFTER_LLM_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Simulation.MaxActions <= 0 {
		return fmt.Errorf("simulation.max_actions must be a positive integer")
	}
	if c.Simulation.EmptyScrollThreshold <= 0 {
		return fmt.Errorf("simulation.empty_scroll_threshold must be a positive integer")
	}
	if c.Simulation.CooldownMax < c.Simulation.CooldownMin {
		return fmt.Errorf("simulation.cooldown_max must not be below simulation.cooldown_min")
	}
	if c.Simulation.ThreadScrollsMin <= 0 {
		return fmt.Errorf("simulation.thread_scrolls_min must be a positive integer")
	}
	if c.Simulation.ThreadScrollsMax < c.Simulation.ThreadScrollsMin {
		return fmt.Errorf("simulation.thread_scrolls_max must not be below simulation.thread_scrolls_min")
	}
	if err := c.Simulation.Probabilities.Validate(); err != nil {
		return fmt.Errorf("simulation.probabilities invalid: %w", err)
	}
	if c.Identity.TokensFile == "" {
		return fmt.Errorf("identity.tokens_file is a required configuration field")
	}
	if c.VPN.Enabled && c.VPN.MaxRetries < 0 {
		return fmt.Errorf("vpn.max_retries must not be negative")
	}
	return nil
}

// Validate checks that each weight is a probability and that the bucket
// total does not exceed 1.
func (w ActionWeights) Validate() error {
	total := 0.0
	for _, p := range []float64{w.Like, w.Repost, w.Reply, w.Quote, w.Follow, w.LikeComment} {
		if p < 0 || p > 1 {
			return fmt.Errorf("each weight must be within [0, 1], got %v", p)
		}
	}
	// like_comment applies inside a thread, not to the main bucket draw.
	total = w.Like + w.Repost + w.Reply + w.Quote + w.Follow
	if total > 1 {
		return fmt.Errorf("main action weights sum to %v, which exceeds 1", total)
	}
	return nil
}
