package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"benchd/internal/common/fsutil"
	"benchd/internal/provider"
	"benchd/pkg/types"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAddr            = ":8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultFlushIntervalMs = 16
	DefaultMaxBodyBytes    = 1 << 20
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr            string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel        string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat       string `json:"log_format" yaml:"log_format" toml:"log_format"`
	FlushIntervalMs int    `json:"flush_interval_ms" yaml:"flush_interval_ms" toml:"flush_interval_ms"`
	// StatePath is where sessions are snapshotted on shutdown. Empty disables persistence.
	StatePath    string     `json:"state_path" yaml:"state_path" toml:"state_path"`
	MaxBodyBytes int64      `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORS         CORSConfig `json:"cors" yaml:"cors" toml:"cors"`

	// Generation is the global config every model's override is merged onto.
	Generation types.GenerationConfig `json:"generation" yaml:"generation" toml:"generation"`
	Providers  []ProviderConfig       `json:"providers" yaml:"providers" toml:"providers"`
	Models     []types.Model          `json:"models" yaml:"models" toml:"models"`
	// ModelsFile is an optional extra catalog of models (yaml/json/toml).
	ModelsFile string `json:"models_file" yaml:"models_file" toml:"models_file"`
	// ModelsDir is scanned for *.gguf files served by ModelsDirProvider.
	ModelsDir         string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	ModelsDirProvider string `json:"models_dir_provider" yaml:"models_dir_provider" toml:"models_dir_provider"`
}

// CORSConfig controls the optional CORS middleware.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// ProviderConfig declares one named backend instance.
type ProviderConfig struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Kind    string `json:"kind" yaml:"kind" toml:"kind"`
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey  string `json:"api_key" yaml:"api_key" toml:"api_key"`
	// APIKeyEnv names an environment variable holding the key; it wins over APIKey.
	APIKeyEnv   string `json:"api_key_env" yaml:"api_key_env" toml:"api_key_env"`
	ContextSize int    `json:"context_size" yaml:"context_size" toml:"context_size"`
	Threads     int    `json:"threads" yaml:"threads" toml:"threads"`
}

// Key resolves the provider's API key.
func (p ProviderConfig) Key() string {
	if p.APIKeyEnv != "" {
		if v := os.Getenv(p.APIKeyEnv); v != "" {
			return v
		}
	}
	return p.APIKey
}

// Options converts the declaration to provider build options.
func (p ProviderConfig) Options() provider.Options {
	return provider.Options{
		BaseURL:     p.BaseURL,
		APIKey:      p.Key(),
		ContextSize: p.ContextSize,
		Threads:     p.Threads,
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	if err := Decode(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode unmarshals the file at path into v, choosing the codec by extension.
func Decode(path string, v any) error {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, v)
	case ".json":
		return json.Unmarshal(b, v)
	case ".toml":
		return toml.Unmarshal(b, v)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
}

// Defaults returns a config with every default applied.
func Defaults() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.FlushIntervalMs <= 0 {
		c.FlushIntervalMs = DefaultFlushIntervalMs
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.CORS.Enabled {
		if len(c.CORS.Origins) == 0 {
			c.CORS.Origins = []string{"*"}
		}
		if len(c.CORS.Methods) == 0 {
			c.CORS.Methods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		}
		if len(c.CORS.Headers) == 0 {
			c.CORS.Headers = []string{"Content-Type", "Authorization", "X-Log-Level"}
		}
	}
}

// ApplyEnv overrides fields from BENCHD_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("BENCHD_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("BENCHD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("BENCHD_STATE"); v != "" {
		c.StatePath = v
	}
}

// Validate checks cross-field consistency: known provider kinds, unique names
// and model ids, and models that reference a declared provider.
func (c Config) Validate() error {
	var errs []error
	providers := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: name is required", i))
			continue
		}
		if providers[p.Name] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name))
		}
		providers[p.Name] = true
		if !provider.KnownKind(p.Kind) {
			errs = append(errs, fmt.Errorf("providers[%d] %q: %w", i, p.Name, provider.ErrUnknownKind(p.Kind)))
		}
	}
	ids := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if strings.TrimSpace(m.ID) == "" {
			errs = append(errs, fmt.Errorf("models[%d]: id is required", i))
			continue
		}
		if ids[m.ID] {
			errs = append(errs, fmt.Errorf("models[%d]: duplicate id %q", i, m.ID))
		}
		ids[m.ID] = true
		if !providers[m.Provider] {
			errs = append(errs, fmt.Errorf("model %q: unknown provider %q", m.ID, m.Provider))
		}
	}
	if c.ModelsDir != "" && !providers[c.ModelsDirProvider] {
		errs = append(errs, fmt.Errorf("models_dir_provider %q is not a declared provider", c.ModelsDirProvider))
	}
	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("log_format must be json or console, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
