package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (BUSWRITER_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setIntFromString("threshold", os.Getenv("BUSWRITER_THRESHOLD"), &cfg.Threshold); err != nil {
		return err
	}
	if err := s.setIntFromString("batch-size", os.Getenv("BUSWRITER_BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	s.setString("flush-mode", os.Getenv("BUSWRITER_FLUSH_MODE"), &cfg.FlushMode)

	s.setString("publisher", os.Getenv("BUSWRITER_PUBLISHER"), &cfg.Publisher)
	s.setString("output", os.Getenv("BUSWRITER_OUTPUT"), &cfg.OutputPath)
	s.setString("service-url", os.Getenv("BUSWRITER_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-key", os.Getenv("BUSWRITER_AUTH_KEY"), &cfg.AuthKey)
	s.setString("beats-addr", os.Getenv("BUSWRITER_BEATS_ADDR"), &cfg.BeatsAddr)
	s.setBoolFromString("gzip", os.Getenv("BUSWRITER_GZIP"), &cfg.Gzip)
	if err := s.setIntFromString("beats-compression", os.Getenv("BUSWRITER_BEATS_COMPRESSION"), &cfg.BeatsCompression); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("BUSWRITER_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("retry-attempts", os.Getenv("BUSWRITER_RETRY_ATTEMPTS"), &cfg.RetryAttempts); err != nil {
		return err
	}
	if err := s.setDuration("retry-initial", os.Getenv("BUSWRITER_RETRY_INITIAL"), &cfg.RetryInitial); err != nil {
		return err
	}
	if err := s.setDuration("retry-max", os.Getenv("BUSWRITER_RETRY_MAX"), &cfg.RetryMax); err != nil {
		return err
	}

	if err := s.setIntFromString("messages", os.Getenv("BUSWRITER_MESSAGES"), &cfg.Messages); err != nil {
		return err
	}
	if err := s.setIntFromString("parallelism", os.Getenv("BUSWRITER_PARALLELISM"), &cfg.Parallelism); err != nil {
		return err
	}
	s.setString("input", os.Getenv("BUSWRITER_INPUT"), &cfg.Input)
	s.setString("log-level", os.Getenv("BUSWRITER_LOG_LEVEL"), &cfg.LogLevel)
	s.setBoolFromString("watch-config", os.Getenv("BUSWRITER_WATCH_CONFIG"), &cfg.WatchConfig)
	if err := s.setDuration("shutdown-timeout", os.Getenv("BUSWRITER_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	return nil
}
