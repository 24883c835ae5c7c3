package config_test

import (
	"os"
	"strings"
	"testing"

	"github.com/km-arc/go-inject/framework/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func setEnv(t *testing.T, key, val string) {
	t.Helper()
	t.Setenv(key, val) // automatically restored after test
}

// unsetEnv clears key for the test. godotenv never overrides variables that
// are already set, so keys an env file should supply must be absent.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "APP_NAME", "APP_ENV", "APP_PORT", "INJECT_ALLOWED_PACKAGE", "LOG_LEVEL", "LOG_FORMAT")
	cfg := config.Load("testdata/empty.env")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"App.Name", cfg.App.Name, "injectdemo"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"Inject.AllowedPackage", cfg.Inject.AllowedPackage, ""},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	setEnv(t, "APP_NAME", "MyApp")
	setEnv(t, "APP_ENV", "production")
	setEnv(t, "APP_PORT", "9000")
	setEnv(t, "INJECT_ALLOWED_PACKAGE", "example.com/app")

	cfg := config.Load("testdata/empty.env")

	if cfg.App.Name != "MyApp" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "MyApp")
	}
	if cfg.App.Env != "production" {
		t.Errorf("App.Env: got %q want %q", cfg.App.Env, "production")
	}
	if cfg.App.Port != "9000" {
		t.Errorf("App.Port: got %q want %q", cfg.App.Port, "9000")
	}
	if cfg.Inject.AllowedPackage != "example.com/app" {
		t.Errorf("Inject.AllowedPackage: got %q want %q", cfg.Inject.AllowedPackage, "example.com/app")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, "APP_NAME", "INJECT_ALLOWED_PACKAGE", "INJECT_PROVIDE_GREETING_PREFIX")

	cfg := config.Load("testdata/app.env")

	if cfg.App.Name != "FromEnvFile" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "FromEnvFile")
	}
	if cfg.Inject.AllowedPackage != "github.com/km-arc/go-inject" {
		t.Errorf("Inject.AllowedPackage: got %q", cfg.Inject.AllowedPackage)
	}
	if got := cfg.Provided["greeting_prefix"]; got != "Hello" {
		t.Errorf("Provided[greeting_prefix]: got %q want %q", got, "Hello")
	}
}

func TestLoad_ProvidedFromEnv(t *testing.T) {
	setEnv(t, "INJECT_PROVIDE_MAX_RETRIES", "5")
	setEnv(t, config.ProvidePrefix, "ignored")

	cfg := config.Load("testdata/empty.env")

	if got := cfg.Provided["max_retries"]; got != "5" {
		t.Errorf("Provided[max_retries]: got %q want %q", got, "5")
	}
	if _, ok := cfg.Provided[""]; ok {
		t.Error("empty marker name should be skipped")
	}
}

func TestLoad_AppDebugFalse(t *testing.T) {
	setEnv(t, "APP_DEBUG", "false")
	cfg := config.Load("testdata/empty.env")
	if cfg.App.Debug {
		t.Error("expected App.Debug to be false")
	}
}

// ── Overlay ──────────────────────────────────────────────────────────────────

func TestLoadFile_OverlaysYAML(t *testing.T) {
	setEnv(t, "APP_ENV", "testing")
	setEnv(t, "INJECT_PROVIDE_GREETING_PREFIX", "Hi")
	setEnv(t, "INJECT_PROVIDE_PUNCTUATION", "!")

	cfg, err := config.LoadFile("testdata/inject.yaml", "testdata/empty.env")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"App.Name", cfg.App.Name, "FromYAML"},
		{"App.Env kept from env", cfg.App.Env, "testing"},
		{"App.Port", cfg.App.Port, "9090"},
		{"Inject.AllowedPackage", cfg.Inject.AllowedPackage, "github.com/km-arc/go-inject/cmd"},
		{"Log.Level", cfg.Log.Level, "debug"},
		{"file marker wins", cfg.Provided["greeting_prefix"], "Howdy"},
		{"file-only marker", cfg.Provided["retries"], "3"},
		{"env-only marker kept", cfg.Provided["punctuation"], "!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestOverlay_MissingFile(t *testing.T) {
	cfg := config.Load("testdata/empty.env")
	err := cfg.Overlay("testdata/missing.yaml")
	if err == nil || !strings.Contains(err.Error(), "config: read") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestOverlay_BrokenYAMLKeepsProvided(t *testing.T) {
	setEnv(t, "INJECT_PROVIDE_GREETING_PREFIX", "Hi")
	cfg := config.Load("testdata/empty.env")

	err := cfg.Overlay("testdata/broken.yaml")
	if err == nil || !strings.Contains(err.Error(), "config: parse") {
		t.Fatalf("expected parse error, got %v", err)
	}
	if got := cfg.Provided["greeting_prefix"]; got != "Hi" {
		t.Errorf("Provided[greeting_prefix]: got %q want %q", got, "Hi")
	}
}

// ── Get / GetInt / GetBool ───────────────────────────────────────────────────

func TestGet_ReturnsValue(t *testing.T) {
	setEnv(t, "CUSTOM_KEY", "hello")
	if got := config.Get("CUSTOM_KEY", "default"); got != "hello" {
		t.Errorf("got %q want %q", got, "hello")
	}
}

func TestGet_ReturnsFallback(t *testing.T) {
	unsetEnv(t, "MISSING_KEY")
	if got := config.Get("MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("got %q want %q", got, "fallback")
	}
}

func TestGetInt(t *testing.T) {
	setEnv(t, "SOME_INT", "42")
	if got := config.GetInt("SOME_INT", 0); got != 42 {
		t.Errorf("got %d want %d", got, 42)
	}
	setEnv(t, "SOME_INT", "notanint")
	if got := config.GetInt("SOME_INT", 99); got != 99 {
		t.Errorf("got %d want %d", got, 99)
	}
}

func TestGetBool(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		setEnv(t, "BOOL_KEY", val)
		if !config.GetBool("BOOL_KEY", false) {
			t.Errorf("expected true for %q", val)
		}
	}
	setEnv(t, "BOOL_KEY", "notabool")
	if !config.GetBool("BOOL_KEY", true) {
		t.Error("expected fallback true")
	}
}
