package xuanbrain

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/xuan-brain/xuan-brain/internal/approot"
	"github.com/xuan-brain/xuan-brain/internal/datapath"
)

// Log formats accepted by Config.LogFormat.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config configures the xuan-brain client.
type Config struct {
	// BaseDir is the platform default base directory. The storage root is
	// BaseDir/xuan-brain unless the data path document points elsewhere.
	// Defaults to the platform app-data directory.
	BaseDir string

	// ConfigPath is the location of the data path document.
	// Defaults to the platform config directory.
	ConfigPath string

	// Debug enables debug level logging.
	Debug bool

	// DebugLogPath is the path to write logs to.
	// Defaults to stderr if empty.
	DebugLogPath string

	// LogFormat is "text" or "json". Defaults to "text".
	LogFormat string
}

// DefaultConfig returns a Config with platform defaults.
func DefaultConfig() Config {
	return Config{
		BaseDir:    approot.DefaultBaseDir(),
		ConfigPath: datapath.DefaultPath(),
		LogFormat:  LogFormatText,
	}
}

// ConfigFromEnv reads configuration from environment variables, after
// loading a .env file from the working directory if one exists. Variables
// already set in the environment take precedence over the file.
//
//	XUAN_BRAIN_HOME       → BaseDir
//	XUAN_BRAIN_CONFIG     → ConfigPath
//	XUAN_BRAIN_DEBUG      → Debug (any non-empty value enables)
//	XUAN_BRAIN_DEBUG_LOG  → DebugLogPath
//	XUAN_BRAIN_LOG_FORMAT → LogFormat
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	return Config{
		BaseDir:      os.Getenv("XUAN_BRAIN_HOME"),
		ConfigPath:   os.Getenv("XUAN_BRAIN_CONFIG"),
		Debug:        os.Getenv("XUAN_BRAIN_DEBUG") != "",
		DebugLogPath: os.Getenv("XUAN_BRAIN_DEBUG_LOG"),
		LogFormat:    os.Getenv("XUAN_BRAIN_LOG_FORMAT"),
	}
}

// Validate checks the configuration for errors.
// Returns *ValidationError for invalid fields.
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return &ValidationError{Field: "BaseDir", Message: "required: default base directory"}
	}
	if c.ConfigPath == "" {
		return &ValidationError{Field: "ConfigPath", Message: "required: path to data path document"}
	}
	switch c.LogFormat {
	case "", LogFormatText, LogFormatJSON:
	default:
		return &ValidationError{Field: "LogFormat", Message: `must be "text" or "json"`}
	}
	return nil
}

// WithDefaults fills in default values for unset fields.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.BaseDir == "" {
		c.BaseDir = defaults.BaseDir
	}
	if c.ConfigPath == "" {
		c.ConfigPath = defaults.ConfigPath
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}
	return c
}
