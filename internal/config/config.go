// Package config loads settings from an optional YAML file, a .env file and
// environment variables, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/trytheo/outreach/internal/outreach"
)

type Config struct {
	Gemini     GeminiConfig        `yaml:"gemini"`
	Pipeline   PipelineConfig      `yaml:"pipeline"`
	Sender     outreach.Sender     `yaml:"sender"`
	Heuristics outreach.Heuristics `yaml:"heuristics"`
	Server     ServerConfig        `yaml:"server"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model   string `yaml:"model" env:"GEMINI_MODEL"`
	BaseURL string `yaml:"base_url" env:"GEMINI_BASE_URL"`

	MaxTokens   int32   `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature float32 `yaml:"temperature" env:"TEMPERATURE"`

	// Transport-level retry/limit settings for the capability wrapper.
	TransportRetries int           `yaml:"transport_retries" env:"TRANSPORT_RETRIES"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	RateLimitRPS     float64       `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
}

type PipelineConfig struct {
	MinConfidenceScore   int           `yaml:"min_confidence_score" env:"MIN_CONFIDENCE_SCORE"`
	MinContactConfidence int           `yaml:"min_contact_confidence" env:"MIN_CONTACT_CONFIDENCE"`
	MaxRetries           int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RetryDelay           time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	MaxContactsPerOrg    int           `yaml:"max_contacts_per_org" env:"MAX_CONTACTS_PER_ORG"`

	// FastPath defaults to enabled; nil means unset.
	FastPath *bool `yaml:"fast_path" env:"FAST_PATH"`
}

// FastPathEnabled reports whether the fast local validation gate is on.
func (p PipelineConfig) FastPathEnabled() bool {
	return p.FastPath == nil || *p.FastPath
}

type ServerConfig struct {
	Addr    string `yaml:"addr" env:"ADDR"`
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`
}

// Load reads the optional YAML config at path (or $CONFIG_FILE when path is
// empty), applies environment overrides and fills in defaults. A missing
// config file is only an error when it was named explicitly.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	setStr(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setStr(&c.Gemini.Model, "GEMINI_MODEL")
	setStr(&c.Gemini.BaseURL, "GEMINI_BASE_URL")
	if err = setInt32(&c.Gemini.MaxTokens, "MAX_TOKENS"); err != nil {
		return err
	}
	if err = setFloat32(&c.Gemini.Temperature, "TEMPERATURE"); err != nil {
		return err
	}
	if err = setInt(&c.Gemini.TransportRetries, "TRANSPORT_RETRIES"); err != nil {
		return err
	}
	if err = setDuration(&c.Gemini.RequestTimeout, "REQUEST_TIMEOUT"); err != nil {
		return err
	}
	if err = setFloat64(&c.Gemini.RateLimitRPS, "RATE_LIMIT_RPS"); err != nil {
		return err
	}

	if err = setInt(&c.Pipeline.MinConfidenceScore, "MIN_CONFIDENCE_SCORE"); err != nil {
		return err
	}
	if err = setInt(&c.Pipeline.MinContactConfidence, "MIN_CONTACT_CONFIDENCE"); err != nil {
		return err
	}
	if err = setInt(&c.Pipeline.MaxRetries, "MAX_RETRIES"); err != nil {
		return err
	}
	if err = setDuration(&c.Pipeline.RetryDelay, "RETRY_DELAY"); err != nil {
		return err
	}
	if err = setInt(&c.Pipeline.MaxContactsPerOrg, "MAX_CONTACTS_PER_ORG"); err != nil {
		return err
	}
	if err = setBoolPtr(&c.Pipeline.FastPath, "FAST_PATH"); err != nil {
		return err
	}

	setStr(&c.Server.Addr, "ADDR")
	setStr(&c.Server.DataDir, "DATA_DIR")
	return nil
}

func (c *Config) applyDefaults() {
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Gemini.MaxTokens <= 0 {
		c.Gemini.MaxTokens = 2000
	}
	if c.Gemini.Temperature <= 0 {
		c.Gemini.Temperature = 0.7
	}
	if c.Gemini.TransportRetries < 0 {
		c.Gemini.TransportRetries = 0
	} else if c.Gemini.TransportRetries == 0 {
		c.Gemini.TransportRetries = 2
	}
	if c.Gemini.RequestTimeout <= 0 {
		c.Gemini.RequestTimeout = 120 * time.Second
	}

	if c.Pipeline.MinConfidenceScore <= 0 {
		c.Pipeline.MinConfidenceScore = 70
	}
	if c.Pipeline.MinContactConfidence <= 0 {
		c.Pipeline.MinContactConfidence = 80
	}
	if c.Pipeline.MaxRetries <= 0 {
		c.Pipeline.MaxRetries = 2
	}
	if c.Pipeline.RetryDelay <= 0 {
		c.Pipeline.RetryDelay = 2 * time.Second
	}
	if c.Pipeline.MaxContactsPerOrg <= 0 {
		c.Pipeline.MaxContactsPerOrg = 3
	}

	if c.Sender == (outreach.Sender{}) {
		c.Sender = outreach.DefaultSender()
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:5001"
	}
	if c.Server.DataDir == "" {
		c.Server.DataDir = "data"
	}
}

// ValidateForGeneration checks the settings required to reach the live
// capability. Not called by tests, which stub the generator.
func (c *Config) ValidateForGeneration() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key)")
	}
	return nil
}

func setStr(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	*dst = out
	return nil
}

func setInt32(dst *int32, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	out, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	*dst = int32(out)
	return nil
}

func setFloat32(dst *float32, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	out, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	*dst = float32(out)
	return nil
}

func setFloat64(dst *float64, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	*dst = out
	return nil
}

func setDuration(dst *time.Duration, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	// Accept bare seconds for compatibility with older deployments.
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	*dst = out
	return nil
}

func setBoolPtr(dst **bool, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	*dst = &out
	return nil
}
