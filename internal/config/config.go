package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fieldtone/fieldtone/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	UI          UIConfig          `mapstructure:"ui"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds platform server configuration
type ServerConfig struct {
	URL       string `mapstructure:"url"`        // API base URL
	ProjectID int    `mapstructure:"project_id"` // Platform project identifier
}

// PreferencesConfig holds user preferences pushed to the streaming client
type PreferencesConfig struct {
	Volume               int     `mapstructure:"volume"`
	OnlyWiFi             bool    `mapstructure:"only_wifi"`
	MockLatitude         float64 `mapstructure:"mock_latitude"`
	MockLongitude        float64 `mapstructure:"mock_longitude"`
	BufferLengthSec      int     `mapstructure:"buffer_length_sec"`
	ShowDetailedMessages bool    `mapstructure:"show_detailed_messages"`
	ResetTagDefaults     bool    `mapstructure:"reset_tag_defaults"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme       string `mapstructure:"theme"`
	ContentPage string `mapstructure:"content_page"` // cached page for the selection overlay
	TagType     string `mapstructure:"tag_type"`     // tag groups rendered into the page
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:       "",
			ProjectID: 0,
		},
		Preferences: PreferencesConfig{
			Volume:          80,
			BufferLengthSec: 12,
		},
		UI: UIConfig{
			Theme:       "default",
			ContentPage: "listen.html",
			TagType:     "listen",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "fieldtone", "fieldtone.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "fieldtone", "fieldtone.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "fieldtone")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "fieldtone")
	}
}

// defaultDataPath returns the default data directory for the current OS.
// The bolt database and cached content bundles live here.
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "fieldtone", "data")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "fieldtone", "data")
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("FIELDTONE")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the current configuration to file
func Save(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.project_id", cfg.Server.ProjectID)

	viper.Set("preferences.volume", cfg.Preferences.Volume)
	viper.Set("preferences.only_wifi", cfg.Preferences.OnlyWiFi)
	viper.Set("preferences.mock_latitude", cfg.Preferences.MockLatitude)
	viper.Set("preferences.mock_longitude", cfg.Preferences.MockLongitude)
	viper.Set("preferences.buffer_length_sec", cfg.Preferences.BufferLengthSec)
	viper.Set("preferences.show_detailed_messages", cfg.Preferences.ShowDetailedMessages)
	viper.Set("preferences.reset_tag_defaults", cfg.Preferences.ResetTagDefaults)

	viper.Set("ui.theme", cfg.UI.Theme)
	viper.Set("ui.content_page", cfg.UI.ContentPage)
	viper.Set("ui.tag_type", cfg.UI.TagType)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server URL and project id are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.ProjectID != 0
}

// DataPath returns the data directory path
func DataPath() string {
	return defaultDataPath()
}

// StreamPreferences converts the preferences section into the form pushed
// to the streaming client.
func (c *Config) StreamPreferences() domain.Preferences {
	return domain.Preferences{
		Volume:               c.Preferences.Volume,
		OnlyWiFi:             c.Preferences.OnlyWiFi,
		MockLatitude:         c.Preferences.MockLatitude,
		MockLongitude:        c.Preferences.MockLongitude,
		BufferLengthSec:      c.Preferences.BufferLengthSec,
		ShowDetailedMessages: c.Preferences.ShowDetailedMessages,
	}
}
