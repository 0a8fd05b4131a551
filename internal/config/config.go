package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all agent configuration, loaded from a YAML file with
// environment variable overrides.
type Config struct {
	Env         string `yaml:"env" env:"APP_ENV" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"timeline.db"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
	} `yaml:"log"`

	Backend struct {
		BaseURL string `yaml:"base_url" env:"BACKEND_BASE_URL" env-default:"http://localhost:8080"`
		APIKey  string `yaml:"api_key" env:"BACKEND_API_KEY"`
		Timeout int    `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"15"` // seconds
	} `yaml:"backend"`

	Server struct {
		Enabled bool `yaml:"enabled" env:"SERVER_ENABLED" env-default:"true"`
		Port    int  `yaml:"port" env:"SERVER_PORT" env-default:"8123"`
	} `yaml:"server"`

	Tracking struct {
		IngestBufferSize int `yaml:"ingest_buffer_size" env:"INGEST_BUFFER_SIZE" env-default:"256"`
	} `yaml:"tracking"`

	Sync struct {
		DrainInterval   int `yaml:"drain_interval" env:"SYNC_DRAIN_INTERVAL" env-default:"60"` // seconds
		BatchSize       int `yaml:"batch_size" env:"SYNC_BATCH_SIZE" env-default:"100"`
		MaxItemAgeHours int `yaml:"max_item_age_hours" env:"SYNC_MAX_ITEM_AGE_HOURS" env-default:"168"`
	} `yaml:"sync"`
}

// LoadConfig reads the configuration file at path and applies environment
// variable overrides.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return &cfg, nil
}
