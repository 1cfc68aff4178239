package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// UserConfig is the on-disk TOML shape of the settings file.
type UserConfig struct {
	Gemini        GeminiConfig `toml:"gemini"`
	DataDirectory string       `toml:"data_directory"`
}

type GeminiConfig struct {
	APIKey       string `toml:"api_key"`
	DefaultModel string `toml:"default_model"`
}

// Config holds the resolved runtime configuration.
type Config struct {
	DataDirectory string
	APIKey        string
	Model         string
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMCHAT_API_KEY"); key != "" {
		c.APIKey = key
	}
	if model := os.Getenv("GEMCHAT_MODEL"); model != "" {
		c.Model = model
	}
	if dataDir := os.Getenv("GEMCHAT_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
}

func CheckDebug() bool {
	debug := os.Getenv("GEMCHAT_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens the debug log file when GEMCHAT_DEBUG is set. DebugLog
// stays nil otherwise; call sites guard on that.
func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// 0600 - the debug log can contain conversation fragments
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	// Debug is set only once the log is writable, so call sites may guard on
	// either Debug or DebugLog != nil.
	Debug = true
	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (GEMCHAT_DEBUG=%s) ===", os.Getenv("GEMCHAT_DEBUG"))
}

// Load resolves configuration from the settings file (if present) with
// environment variables taking precedence, and ensures the data directory
// exists with user-only permissions.
func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory: "~/.local/share/gemchat",
		Model:         "gemini-2.0-flash",
	}

	settingsPath := GetSettingsFilePath()
	if FileExists(settingsPath) {
		var userCfg UserConfig
		if _, err := toml.DecodeFile(settingsPath, &userCfg); err != nil {
			return nil, fmt.Errorf("failed to parse settings file: %w", err)
		}
		if userCfg.DataDirectory != "" {
			cfg.DataDirectory = userCfg.DataDirectory
		}
		if userCfg.Gemini.APIKey != "" {
			cfg.APIKey = userCfg.Gemini.APIKey
		}
		if userCfg.Gemini.DefaultModel != "" {
			cfg.Model = userCfg.Gemini.DefaultModel
		}
	}

	cfg.applyEnvOverrides()

	// GEMINI_API_KEY is the conventional variable for the hosted API; honor it
	// as a fallback so an already-configured environment just works.
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	dataDir := cfg.DataDir()
	if err := EnsureDir(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}
