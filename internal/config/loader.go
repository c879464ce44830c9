package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	// Load .env before any environment variable is read
	_ "github.com/joho/godotenv/autoload"
)

// Load reads configuration from the environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("recording.base_dir", "recordings")
	v.SetDefault("recording.headless", true)
	v.SetDefault("recording.no_sandbox", false)
	v.SetDefault("recording.video_bits_per_second", 2500000)
	v.SetDefault("recording.ffmpeg_path", "ffmpeg")
	v.SetDefault("storage.region", "ap-southeast-1")
	v.SetDefault("storage.key_prefix", "recordings")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "synergix_remix_vcall")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.pretty", false)

	// Environment variable names follow the upstream deployment's .env
	bindings := map[string]string{
		"server.host":                     "HOST",
		"server.port":                     "PORT",
		"recording.base_dir":              "RECORDINGS_DIR",
		"recording.browser_path":          "BROWSER_PATH",
		"recording.headless":              "HEADLESS",
		"recording.no_sandbox":            "NO_SANDBOX",
		"recording.video_bits_per_second": "VIDEO_BITS_PER_SECOND",
		"recording.ffmpeg_path":           "FFMPEG_PATH",
		"recording.sweep_schedule":        "SWEEP_SCHEDULE",
		"storage.bucket":                  "S3_BUCKET",
		"storage.region":                  "AWS_REGION",
		"storage.access_key":              "AWS_ACCESS_KEY",
		"storage.secret_key":              "AWS_SECRET_KEY",
		"storage.endpoint":                "S3_ENDPOINT",
		"storage.key_prefix":              "S3_KEY_PREFIX",
		"database.host":                   "DB_HOST",
		"database.port":                   "DB_PORT",
		"database.name":                   "DB_NAME",
		"database.user":                   "DB_USER",
		"database.password":               "DB_PASSWORD",
		"upstream.base_url":               "UPSTREAM_API_URL",
		"upstream.api_key":                "UPSTREAM_API_KEY",
		"upstream.timeout":                "UPSTREAM_TIMEOUT",
		"logging.level":                   "LOG_LEVEL",
		"logging.file":                    "LOG_FILE",
		"logging.console":                 "LOG_CONSOLE",
		"logging.pretty":                  "LOG_PRETTY",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
