package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Threshold:       256,
				BatchSize:       25,
				FlushMode:       "detached",
				Publisher:       "http",
				ServiceURL:      "http://bus.local",
				AuthKey:         "secret",
				HTTPTimeout:     "30s",
				Gzip:            &trueVal,
				RetryAttempts:   3,
				RetryInitial:    "100ms",
				RetryMax:        "2s",
				Messages:        500,
				Parallelism:     4,
				LogLevel:        "debug",
				WatchConfig:     &trueVal,
				ShutdownTimeout: "5s",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Threshold:       256,
				BatchSize:       25,
				FlushMode:       "detached",
				Publisher:       "http",
				ServiceURL:      "http://bus.local",
				AuthKey:         "secret",
				HTTPTimeout:     30 * time.Second,
				Gzip:            true,
				RetryAttempts:   3,
				RetryInitial:    100 * time.Millisecond,
				RetryMax:        2 * time.Second,
				Messages:        500,
				Parallelism:     4,
				LogLevel:        "debug",
				WatchConfig:     true,
				ShutdownTimeout: 5 * time.Second,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Threshold: 500,
				BatchSize: 50,
			},
			changed: map[string]bool{"threshold": true},
			initial: Config{Threshold: 100, BatchSize: 10},
			expected: Config{
				Threshold: 100, // unchanged because flag was set
				BatchSize: 50,
			},
		},
		{
			name: "zero values keep defaults",
			fileConfig: FileConfig{
				Publisher: "",
				Threshold: 0,
			},
			changed:  map[string]bool{},
			initial:  DefaultConfig(),
			expected: DefaultConfig(),
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{RetryInitial: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v\nwant %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
threshold = 120
batch_size = 12
flush_mode = "detached"
publisher = "beats"
beats_addr = "127.0.0.1:5044"
retry_initial = "250ms"
watch_config = true
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Threshold != 120 {
		t.Errorf("Threshold = %v, want 120", fc.Threshold)
	}
	if fc.BatchSize != 12 {
		t.Errorf("BatchSize = %v, want 12", fc.BatchSize)
	}
	if fc.FlushMode != "detached" {
		t.Errorf("FlushMode = %v, want detached", fc.FlushMode)
	}
	if fc.Publisher != "beats" || fc.BeatsAddr != "127.0.0.1:5044" {
		t.Errorf("Publisher = %v, BeatsAddr = %v", fc.Publisher, fc.BeatsAddr)
	}
	if fc.RetryInitial != "250ms" {
		t.Errorf("RetryInitial = %v, want 250ms", fc.RetryInitial)
	}
	if fc.WatchConfig == nil || !*fc.WatchConfig {
		t.Errorf("WatchConfig = %v, want true", fc.WatchConfig)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	if _, err := LoadFileConfig("/nonexistent/path/config.toml"); err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.toml")
	if err := os.WriteFile(configPath, []byte("threshold = 100\nthis is not valid toml\n"), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	if _, err := LoadFileConfig(configPath); err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if path != "" && !strings.Contains(path, ".buswriter") {
		t.Errorf("DefaultConfigPath() = %v, should contain .buswriter", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")
	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}
	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
