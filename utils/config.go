package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config stores the application configuration. Values are read by viper
// from a config file, falling back to defaults.
type Config struct {
	Backend     BackendConfig    `mapstructure:"backend"`
	Data        DataConfig       `mapstructure:"data"`
	Log         LogConfig        `mapstructure:"log"`
	Attachments AttachmentConfig `mapstructure:"attachments"`
}

// BackendConfig locates the RAG backend.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// DataConfig configures local storage.
type DataConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// AttachmentConfig bounds attachment packaging.
type AttachmentConfig struct {
	MaxFileSizeBytes int64 `mapstructure:"max_file_size_bytes"`
	MaxImagePixels   uint  `mapstructure:"max_image_pixels"`
	ImageQuality     int   `mapstructure:"image_quality"`
}

// LoadConfig reads configuration from the given file, or from the default
// locations when path is empty. A missing file is not an error; defaults
// apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(defaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("data.db_path", filepath.Join(defaultConfigDir(), "chat.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("attachments.max_file_size_bytes", 10*1024*1024)
	v.SetDefault("attachments.max_image_pixels", 1024)
	v.SetDefault("attachments.image_quality", 85)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// defaultConfigDir returns the per-user directory for config and data.
func defaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(configDir, "rag-chat-client")
}
