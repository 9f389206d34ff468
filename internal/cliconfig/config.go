package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AndrewSilver/buswriter/internal/batch"
	"github.com/AndrewSilver/buswriter/internal/buffer"
	"github.com/AndrewSilver/buswriter/internal/domain"
)

// Publisher kinds.
const (
	PublisherStdout = "stdout"
	PublisherFile   = "file"
	PublisherHTTP   = "http"
	PublisherBeats  = "beats"
)

// Config holds CLI configuration for buswriter.
type Config struct {
	// Core
	Threshold int
	BatchSize int
	FlushMode string

	// Downstream
	Publisher        string
	OutputPath       string
	ServiceURL       string
	AuthKey          string
	HTTPTimeout      time.Duration
	Gzip             bool
	BeatsAddr        string
	BeatsCompression int

	// Retry
	RetryAttempts int
	RetryInitial  time.Duration
	RetryMax      time.Duration

	// Workload
	Messages    int
	Parallelism int
	Input       string

	LogLevel        string
	WatchConfig     bool
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Threshold:       buffer.DefaultThreshold,
		BatchSize:       batch.DefaultSize,
		FlushMode:       buffer.FlushInline.String(),
		Publisher:       PublisherStdout,
		HTTPTimeout:     15 * time.Second,
		RetryAttempts:   1,
		RetryInitial:    200 * time.Millisecond,
		RetryMax:        5 * time.Second,
		Messages:        100,
		Parallelism:     2,
		LogLevel:        "info",
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration for errors and normalizes derived values.
// Errors wrap domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Threshold <= 0 {
		return invalid("threshold must be positive")
	}
	if c.BatchSize <= 0 {
		return invalid("batch size must be positive")
	}
	if _, err := buffer.ParseFlushMode(c.FlushMode); err != nil {
		return invalid(err.Error())
	}

	c.Publisher = strings.ToLower(strings.TrimSpace(c.Publisher))
	switch c.Publisher {
	case PublisherStdout:
	case PublisherFile:
		if c.OutputPath == "" {
			return invalid("output path is required for the file publisher")
		}
	case PublisherHTTP:
		// Ensure no trailing slash
		c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")
		if c.ServiceURL == "" {
			return invalid("service-url is required for the http publisher")
		}
	case PublisherBeats:
		if c.BeatsAddr == "" {
			return invalid("beats-addr is required for the beats publisher")
		}
	default:
		return invalid(fmt.Sprintf("unknown publisher %q", c.Publisher))
	}

	if c.RetryAttempts < 1 {
		c.RetryAttempts = 1
	}
	if c.Parallelism < 1 {
		return invalid("parallelism must be at least 1")
	}
	if c.Messages < 0 {
		return invalid("messages must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return invalid("shutdown timeout must be positive")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
