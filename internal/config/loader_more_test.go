package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"benchd/pkg/types"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "addr: :8080\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.json", `{ "addr": ":8080", "models": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "addr=:8080\nmodels\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	if c.Addr != DefaultAddr || c.LogLevel != "info" || c.LogFormat != "json" || c.FlushIntervalMs != 16 || c.MaxBodyBytes != 1<<20 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.CORS.Enabled || len(c.CORS.Origins) != 0 {
		t.Fatalf("cors should stay off by default")
	}
	c = Config{CORS: CORSConfig{Enabled: true}}
	c.ApplyDefaults()
	if len(c.CORS.Origins) != 1 || c.CORS.Origins[0] != "*" || len(c.CORS.Methods) == 0 {
		t.Fatalf("cors defaults: %+v", c.CORS)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown kind", Config{Providers: []ProviderConfig{{Name: "p", Kind: "grpc"}}}, "unknown provider kind"},
		{"duplicate provider", Config{Providers: []ProviderConfig{{Name: "p", Kind: "openai"}, {Name: "p", Kind: "openai"}}}, "duplicate name"},
		{"unnamed provider", Config{Providers: []ProviderConfig{{Kind: "openai"}}}, "name is required"},
		{"duplicate model", Config{
			Providers: []ProviderConfig{{Name: "p", Kind: "openai"}},
			Models:    []types.Model{{ID: "m", Provider: "p"}, {ID: "m", Provider: "p"}},
		}, "duplicate id"},
		{"unknown model provider", Config{Models: []types.Model{{ID: "m", Provider: "nope"}}}, "unknown provider \"nope\""},
		{"models dir provider", Config{ModelsDir: "/models", ModelsDirProvider: "x"}, "models_dir_provider"},
		{"log format", Config{LogFormat: "xml"}, "log_format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
	if err := (Config{}).Validate(); err != nil {
		t.Fatalf("empty config should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BENCHD_ADDR", ":1234")
	t.Setenv("BENCHD_LOG_LEVEL", "error")
	t.Setenv("BENCHD_STATE", "/var/lib/benchd/state.json")
	var c Config
	c.ApplyEnv()
	if c.Addr != ":1234" || c.LogLevel != "error" || c.StatePath != "/var/lib/benchd/state.json" {
		t.Fatalf("env not applied: %+v", c)
	}
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: \":9000\"\nlog_level: warn\n")
	t.Setenv("BENCHD_ADDR", ":9100")

	var f Flags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, &f)
	BindServeFlags(fs, &f)
	if err := fs.Parse([]string{"--config", p, "--log-level", "debug", "--flush-interval", "40ms"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := Resolve(f)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Fatalf("env should override file addr, got %q", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("flag should override file log level, got %q", cfg.LogLevel)
	}
	if cfg.FlushIntervalMs != 40 {
		t.Fatalf("flush interval: %d", cfg.FlushIntervalMs)
	}
	if f.FlushInterval != 40*time.Millisecond {
		t.Fatalf("flag value: %v", f.FlushInterval)
	}
}
