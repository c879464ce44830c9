package config

import (
	"fmt"
	"time"
)

// Config is the recorder's process configuration. Values come from the
// environment (with .env autoload); required credentials are validated at
// startup so a missing secret fails fast, never mid-session.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Recording RecordingConfig `mapstructure:"recording"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RecordingConfig holds capture and pipeline settings
type RecordingConfig struct {
	BaseDir            string `mapstructure:"base_dir"`
	BrowserPath        string `mapstructure:"browser_path"`
	Headless           bool   `mapstructure:"headless"`
	NoSandbox          bool   `mapstructure:"no_sandbox"`
	VideoBitsPerSecond int    `mapstructure:"video_bits_per_second"`
	FFmpegPath         string `mapstructure:"ffmpeg_path"`
	// SweepSchedule is a cron expression retrying local-path fallbacks;
	// empty disables the sweep
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

// StorageConfig holds object store credentials
type StorageConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DatabaseConfig holds relational store connection parameters
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN renders the Postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

// UpstreamConfig holds the upstream notification API settings
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
	Pretty  bool   `mapstructure:"pretty"`
}

// Validate checks that required credentials are present
func (c *Config) Validate() error {
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return fmt.Errorf("storage credentials are missing: set AWS_ACCESS_KEY and AWS_SECRET_KEY")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is missing: set S3_BUCKET")
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("database connection parameters are missing")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream api url is missing: set UPSTREAM_API_URL")
	}
	if c.Upstream.APIKey == "" {
		return fmt.Errorf("upstream api key is missing: set UPSTREAM_API_KEY")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}
