package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags holds command-line overrides. Empty or zero values leave the file
// config untouched.
type Flags struct {
	ConfigPath    string
	Addr          string
	LogLevel      string
	LogFormat     string
	StatePath     string
	FlushInterval time.Duration
}

// BindFlags registers the shared flags on fs.
func BindFlags(fs *pflag.FlagSet, f *Flags) {
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "Path to config file (yaml|yml|json|toml)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug|info|warn|error|off")
}

// BindServeFlags registers the flags only the server understands.
func BindServeFlags(fs *pflag.FlagSet, f *Flags) {
	fs.StringVar(&f.Addr, "addr", "", "HTTP listen address, e.g. :8080")
	fs.StringVar(&f.LogFormat, "log-format", "", "Log format: json|console")
	fs.StringVar(&f.StatePath, "state", "", "Session snapshot file; empty disables persistence")
	fs.DurationVar(&f.FlushInterval, "flush-interval", 0, "Streaming publication interval, e.g. 16ms")
}

// Apply layers non-empty flag values over c.
func (f Flags) Apply(c *Config) {
	if f.Addr != "" {
		c.Addr = f.Addr
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" {
		c.LogFormat = f.LogFormat
	}
	if f.StatePath != "" {
		c.StatePath = f.StatePath
	}
	if f.FlushInterval > 0 {
		c.FlushIntervalMs = int(f.FlushInterval / time.Millisecond)
	}
}

// Resolve loads the file named by the flags (if any), then applies
// environment overrides, flag overrides and defaults, and validates.
func Resolve(f Flags) (Config, error) {
	var cfg Config
	if f.ConfigPath != "" {
		c, err := Load(f.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	cfg.ApplyEnv()
	f.Apply(&cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
