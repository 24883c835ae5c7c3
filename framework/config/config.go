package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ProvidePrefix marks environment variables that become provided marker
// values: INJECT_PROVIDE_GREETING_PREFIX=Hi provides marker
// "greeting_prefix".
const ProvidePrefix = "INJECT_PROVIDE_"

// Config is the central typed configuration struct.
type Config struct {
	App    AppConfig    `yaml:"app"`
	Inject InjectConfig `yaml:"inject"`
	Log    LogConfig    `yaml:"log"`

	// Provided holds marker values handed to the container with
	// ProvideExternal. Keys are marker names.
	Provided map[string]string `yaml:"provided"`
}

type AppConfig struct {
	Name  string `yaml:"name"`
	Env   string `yaml:"env"` // local | production | testing
	Debug bool   `yaml:"debug"`
	Port  string `yaml:"port"`
}

// InjectConfig configures the container.
type InjectConfig struct {
	// AllowedPackage is the package root the container may construct
	// types from. Empty allows every package.
	AllowedPackage string `yaml:"allowed_package"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "injectdemo"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
			Port:  env("APP_PORT", "8000"),
		},
		Inject: InjectConfig{
			AllowedPackage: env("INJECT_ALLOWED_PACKAGE", ""),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "console"),
		},
		Provided: providedFromEnv(),
	}
}

// LoadFile is Load followed by a YAML overlay from path. Keys present in
// the file win over the environment; provided markers are merged.
func LoadFile(path string, envFiles ...string) (*Config, error) {
	cfg := Load(envFiles...)
	if err := cfg.Overlay(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay decodes the YAML file at path on top of c.
func (c *Config) Overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "config: read %s", path)
	}
	base := c.Provided
	c.Provided = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		c.Provided = base
		return errors.Wrapf(err, "config: parse %s", path)
	}
	merged := make(map[string]string, len(base)+len(c.Provided))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range c.Provided {
		merged[k] = v
	}
	c.Provided = merged
	return nil
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func providedFromEnv() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, ProvidePrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, ProvidePrefix))
		if name != "" {
			out[name] = val
		}
	}
	return out
}
