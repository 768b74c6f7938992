package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// TestDefaultConfigIsValid checks that a fresh configuration passes validation
func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.Processing.Mode != ModeStandard {
		t.Errorf("Expected default mode %q, got %q", ModeStandard, cfg.Processing.Mode)
	}
}

// TestLoadConfigMissingFile verifies that defaults are returned for a missing file
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Expected default config, got %+v", cfg)
	}
}

// TestSaveAndLoadConfig verifies a config survives a round trip through YAML
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Processing.Mode = ModeFiltered
	cfg.Processing.DecayTimes = []float64{3600, 86400}
	cfg.Filter.Cells = []int64{10, 20}
	cfg.Filter.Isotopes = []string{"Co60"}
	cfg.Box.Enabled = true
	cfg.Box.Origin = [3]float64{-1, 0, 2.5}
	cfg.Box.Rotation = [3]float64{0, 0, 45}
	cfg.Mesh.NX, cfg.Mesh.NY, cfg.Mesh.NZ = 4, 5, 6

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("Round trip mismatch:\nsaved  %+v\nloaded %+v", cfg, loaded)
	}
}

// TestLoadConfigPartialFile checks that unspecified settings keep defaults
func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "processing:\n  mode: by-component\noutput:\n  verbose: true\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Processing.Mode != ModeByComponent || !cfg.Output.Verbose {
		t.Errorf("File settings not applied: %+v", cfg)
	}
	if cfg.Reference.File != "reference.yaml" {
		t.Errorf("Expected default reference file, got %q", cfg.Reference.File)
	}
}

// TestCreateDefaultConfigFile verifies the generated file loads back to defaults
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radwaste.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Expected default config, got %+v", cfg)
	}
}

// TestApplyEnv checks that RADWASTE_* variables and the env file override the config
func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "RADWASTE_REFERENCE_FILE=/data/ref.yaml\nRADWASTE_MODE=filtered\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	// The process environment wins over the file.
	t.Setenv("RADWASTE_MODE", "by-component")
	t.Setenv("RADWASTE_DECAY_TIMES", "3600, 86400,")
	t.Setenv("RADWASTE_VERBOSE", "true")
	// Registers a restore for the variable the env file sets.
	t.Setenv("RADWASTE_REFERENCE_FILE", "")
	os.Unsetenv("RADWASTE_REFERENCE_FILE")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(envFile); err != nil {
		t.Fatalf("Failed to apply env: %v", err)
	}

	if cfg.Processing.Mode != ModeByComponent {
		t.Errorf("Expected mode from environment, got %q", cfg.Processing.Mode)
	}
	if cfg.Reference.File != "/data/ref.yaml" {
		t.Errorf("Expected reference file from env file, got %q", cfg.Reference.File)
	}
	if !reflect.DeepEqual(cfg.Processing.DecayTimes, []float64{3600, 86400}) {
		t.Errorf("Unexpected decay times %v", cfg.Processing.DecayTimes)
	}
	if !cfg.Output.Verbose {
		t.Error("Expected verbose output")
	}
}

// TestApplyEnvErrors checks malformed values and a missing env file
func TestApplyEnvErrors(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Missing env file should be ignored: %v", err)
	}

	t.Setenv("RADWASTE_VERBOSE", "sometimes")
	if err := cfg.ApplyEnv(""); err == nil {
		t.Error("Expected error for malformed boolean")
	}

	t.Setenv("RADWASTE_VERBOSE", "1")
	t.Setenv("RADWASTE_DECAY_TIMES", "1,two")
	if err := cfg.ApplyEnv(""); err == nil {
		t.Error("Expected error for malformed decay times")
	}
}

// TestValidate checks that each broken setting is reported
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Processing.Mode = "fast" }, "unknown mode"},
		{"duplicate decay time", func(c *Config) { c.Processing.DecayTimes = []float64{1, 2, 1} }, "listed twice"},
		{"no reference", func(c *Config) { c.Reference.File = "" }, "reference.file"},
		{"no components", func(c *Config) {
			c.Processing.Mode = ModeByComponent
			c.Components.File = ""
		}, "components.file"},
		{"flat box", func(c *Config) {
			c.Box.Enabled = true
			c.Box.Size = [3]float64{1, 0, 1}
		}, "box.size[1]"},
		{"slices without mesh", func(c *Config) { c.Output.ExtractSlices = true }, "extractSlices"},
		{"bad slice column", func(c *Config) { c.Output.SliceColumn = "mass" }, "sliceColumn"},
		{"negative mesh", func(c *Config) { c.Mesh.NX = -1 }, "mesh dimensions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q in %q", tt.want, err.Error())
			}
		})
	}

	// A box described by a surface file needs no size.
	cfg := DefaultConfig()
	cfg.Box.Enabled = true
	cfg.Box.Size = [3]float64{}
	cfg.Box.STLFile = "box.stl"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
