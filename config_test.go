package xuanbrain_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	xuanbrain "github.com/xuan-brain/xuan-brain"
)

func TestConfig_Validate_Valid(t *testing.T) {
	cfg := xuanbrain.Config{BaseDir: "/tmp/base", ConfigPath: "/tmp/data-path.json"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned error for valid config: %v", err)
	}
}

func TestConfig_Validate_Fields(t *testing.T) {
	tests := []struct {
		name  string
		cfg   xuanbrain.Config
		field string
	}{
		{"missing base", xuanbrain.Config{ConfigPath: "/tmp/x.json"}, "BaseDir"},
		{"missing config path", xuanbrain.Config{BaseDir: "/tmp"}, "ConfigPath"},
		{"bad log format", xuanbrain.Config{BaseDir: "/tmp", ConfigPath: "/tmp/x.json", LogFormat: "xml"}, "LogFormat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			var ve *xuanbrain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() returned %T, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("ValidationError.Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestConfigFromEnv_ReadsVars(t *testing.T) {
	t.Setenv("XUAN_BRAIN_HOME", "/srv/base")
	t.Setenv("XUAN_BRAIN_CONFIG", "/srv/cfg.json")
	t.Setenv("XUAN_BRAIN_DEBUG", "1")
	t.Setenv("XUAN_BRAIN_DEBUG_LOG", "/srv/debug.log")
	t.Setenv("XUAN_BRAIN_LOG_FORMAT", "json")

	cfg := xuanbrain.ConfigFromEnv()
	if cfg.BaseDir != "/srv/base" {
		t.Errorf("BaseDir = %q", cfg.BaseDir)
	}
	if cfg.ConfigPath != "/srv/cfg.json" {
		t.Errorf("ConfigPath = %q", cfg.ConfigPath)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.DebugLogPath != "/srv/debug.log" {
		t.Errorf("DebugLogPath = %q", cfg.DebugLogPath)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
}

func TestConfigFromEnv_LoadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "XUAN_BRAIN_LOG_FORMAT=json\nXUAN_BRAIN_HOME=/from/file\n")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// Variables already in the environment win over the file.
	t.Setenv("XUAN_BRAIN_HOME", "/from/env")
	t.Setenv("XUAN_BRAIN_LOG_FORMAT", "")
	os.Unsetenv("XUAN_BRAIN_LOG_FORMAT")

	cfg := xuanbrain.ConfigFromEnv()
	if cfg.BaseDir != "/from/env" {
		t.Errorf("BaseDir = %q, want /from/env", cfg.BaseDir)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json from .env", cfg.LogFormat)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Setenv("XUAN_BRAIN_HOME", "/srv/home")
	t.Setenv("XUAN_BRAIN_CONFIG", "/srv/data-path.json")

	cfg := xuanbrain.Config{}.WithDefaults()
	if cfg.BaseDir != "/srv/home" {
		t.Errorf("BaseDir = %q, want /srv/home", cfg.BaseDir)
	}
	if cfg.ConfigPath != "/srv/data-path.json" {
		t.Errorf("ConfigPath = %q, want /srv/data-path.json", cfg.ConfigPath)
	}
	if cfg.LogFormat != xuanbrain.LogFormatText {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}

	explicit := xuanbrain.Config{BaseDir: "/mine", LogFormat: "json"}.WithDefaults()
	if explicit.BaseDir != "/mine" || explicit.LogFormat != "json" {
		t.Errorf("explicit values overwritten: %+v", explicit)
	}
}
