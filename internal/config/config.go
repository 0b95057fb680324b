// Package config loads server configuration from an optional YAML file
// with TEAMTASK_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	DBPath          string        `mapstructure:"db_path"`
	BlobDir         string        `mapstructure:"blob_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogFormat       string        `mapstructure:"log_format"` // "json" (default) or "text"
	LogLevel        string        `mapstructure:"log_level"`  // "debug", "info" (default), "warn", "error"
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// Load reads configuration from the given file path (optional; pass ""
// to rely on defaults and environment only). Environment variables use
// the TEAMTASK_ prefix, e.g. TEAMTASK_LISTEN_ADDR.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("db_path", "./data/teamtask.db")
	v.SetDefault("blob_dir", "./data/blobs")
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("log_format", "json")
	v.SetDefault("log_level", "info")
	v.SetDefault("max_body_bytes", int64(10<<20))

	v.SetEnvPrefix("TEAMTASK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
