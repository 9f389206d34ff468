package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Threshold        int    `toml:"threshold"`
	BatchSize        int    `toml:"batch_size"`
	FlushMode        string `toml:"flush_mode"`
	Publisher        string `toml:"publisher"`
	OutputPath       string `toml:"output_path"`
	ServiceURL       string `toml:"service_url"`
	AuthKey          string `toml:"auth_key"`
	HTTPTimeout      string `toml:"http_timeout"`
	Gzip             *bool  `toml:"gzip"`
	BeatsAddr        string `toml:"beats_addr"`
	BeatsCompression int    `toml:"beats_compression"`
	RetryAttempts    int    `toml:"retry_attempts"`
	RetryInitial     string `toml:"retry_initial"`
	RetryMax         string `toml:"retry_max"`
	Messages         int    `toml:"messages"`
	Parallelism      int    `toml:"parallelism"`
	Input            string `toml:"input"`
	LogLevel         string `toml:"log_level"`
	WatchConfig      *bool  `toml:"watch_config"`
	ShutdownTimeout  string `toml:"shutdown_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.buswriter/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".buswriter", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setInt("threshold", fc.Threshold, &cfg.Threshold)
	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setString("flush-mode", fc.FlushMode, &cfg.FlushMode)

	s.setString("publisher", fc.Publisher, &cfg.Publisher)
	s.setString("output", fc.OutputPath, &cfg.OutputPath)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("beats-addr", fc.BeatsAddr, &cfg.BeatsAddr)
	s.setInt("beats-compression", fc.BeatsCompression, &cfg.BeatsCompression)
	s.setBool("gzip", fc.Gzip, &cfg.Gzip)

	s.setInt("retry-attempts", fc.RetryAttempts, &cfg.RetryAttempts)
	s.setInt("messages", fc.Messages, &cfg.Messages)
	s.setInt("parallelism", fc.Parallelism, &cfg.Parallelism)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-initial", fc.RetryInitial, &cfg.RetryInitial); err != nil {
		return err
	}
	if err := s.setDuration("retry-max", fc.RetryMax, &cfg.RetryMax); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
