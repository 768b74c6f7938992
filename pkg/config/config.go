// Package config provides configuration loading and management for radwaste.
// It handles loading configuration from YAML files, applies environment
// overrides and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// Processing modes accepted in processing.mode.
const (
	ModeStandard    = "standard"
	ModeFiltered    = "filtered"
	ModeByComponent = "by-component"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Mode selects the processing strategy: standard, filtered or by-component
		Mode string `yaml:"mode"`

		// DecayTimes relabels the decay steps of the input, in seconds. Empty
		// keeps the labels found in the data.
		DecayTimes []float64 `yaml:"decayTimes,omitempty"`

		// SkipDegenerateGroups keeps going when a voxel or component has no
		// mass; such rows get a zero contact dose rate
		SkipDegenerateGroups bool `yaml:"skipDegenerateGroups"`
	} `yaml:"processing"`

	// Reference data (dose factors and material compositions)
	Reference struct {
		File string `yaml:"file"`
	} `yaml:"reference"`

	// Components list, used by the by-component mode
	Components struct {
		File string `yaml:"file"`
	} `yaml:"components"`

	// Filter restricts the filtered mode. Empty lists are unrestricted.
	Filter struct {
		Cells    []int64  `yaml:"cells,omitempty"`
		Isotopes []string `yaml:"isotopes,omitempty"`
	} `yaml:"filter"`

	// Box is the radwaste box of the filtered mode
	Box struct {
		Enabled bool `yaml:"enabled"`

		// Origin, Size and Rotation (degrees about x, y, z) describe a
		// parametric box
		Origin   [3]float64 `yaml:"origin"`
		Size     [3]float64 `yaml:"size"`
		Rotation [3]float64 `yaml:"rotation"`

		// STLFile replaces the parametric box with a closed surface
		STLFile string `yaml:"stlFile"`
	} `yaml:"box"`

	// Mesh describes a structured mesh for slice export; zero disables it
	Mesh struct {
		NX int `yaml:"nx"`
		NY int `yaml:"ny"`
		NZ int `yaml:"nz"`
	} `yaml:"mesh"`

	// Output parameters
	Output struct {
		// Dir receives one folder per decay time
		Dir string `yaml:"dir"`

		// ReportDB is the SQLite report database; empty disables the report
		ReportDB string `yaml:"reportDB"`

		// SaveIntermediaryResults also writes the relabelled input datasets
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// ExtractSlices writes dose slice images for structured meshes
		ExtractSlices bool `yaml:"extractSlices"`

		// SliceColumn is the dose column rendered in slices (dose_1m or cdr)
		SliceColumn string `yaml:"sliceColumn"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Mode = ModeStandard
	cfg.Processing.SkipDegenerateGroups = false

	cfg.Reference.File = "reference.yaml"
	cfg.Components.File = "components.yaml"

	cfg.Box.Size = [3]float64{1, 1, 1}

	cfg.Output.Dir = "radwaste_output"
	cfg.Output.ReportDB = filepath.Join("radwaste_output", "report.db")
	cfg.Output.SliceColumn = "cdr"
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// ApplyEnv loads envFile when it exists and applies RADWASTE_* variables on
// top of cfg. Variables already set in the process environment win over the
// file.
func (cfg *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error loading env file: %w", err)
		}
	}

	str := map[string]*string{
		"RADWASTE_MODE":            &cfg.Processing.Mode,
		"RADWASTE_REFERENCE_FILE":  &cfg.Reference.File,
		"RADWASTE_COMPONENTS_FILE": &cfg.Components.File,
		"RADWASTE_OUTPUT_DIR":      &cfg.Output.Dir,
		"RADWASTE_REPORT_DB":       &cfg.Output.ReportDB,
		"RADWASTE_BOX_STL":         &cfg.Box.STLFile,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	flags := map[string]*bool{
		"RADWASTE_VERBOSE":           &cfg.Output.Verbose,
		"RADWASTE_SKIP_DEGENERATE":   &cfg.Processing.SkipDegenerateGroups,
		"RADWASTE_EXTRACT_SLICES":    &cfg.Output.ExtractSlices,
		"RADWASTE_SAVE_INTERMEDIARY": &cfg.Output.SaveIntermediaryResults,
	}
	for name, dst := range flags {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("error parsing %s: %w", name, err)
		}
		*dst = b
	}

	if v, ok := os.LookupEnv("RADWASTE_DECAY_TIMES"); ok {
		times, err := parseFloats(v)
		if err != nil {
			return fmt.Errorf("error parsing RADWASTE_DECAY_TIMES: %w", err)
		}
		cfg.Processing.DecayTimes = times
	}
	return nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Validate checks the settings the processing steps rely on.
func (cfg *Config) Validate() error {
	var problems []string
	switch cfg.Processing.Mode {
	case ModeStandard, ModeFiltered, ModeByComponent:
	default:
		problems = append(problems, fmt.Sprintf("unknown mode %q", cfg.Processing.Mode))
	}

	seen := make(map[float64]bool)
	for _, t := range cfg.Processing.DecayTimes {
		if seen[t] {
			problems = append(problems, fmt.Sprintf("decay time %g listed twice", t))
		}
		seen[t] = true
	}

	if cfg.Reference.File == "" {
		problems = append(problems, "reference.file is required")
	}
	if cfg.Processing.Mode == ModeByComponent && cfg.Components.File == "" {
		problems = append(problems, "components.file is required in by-component mode")
	}
	if cfg.Output.Dir == "" {
		problems = append(problems, "output.dir is required")
	}

	if cfg.Box.Enabled && cfg.Box.STLFile == "" {
		for i, s := range cfg.Box.Size {
			if s <= 0 {
				problems = append(problems, fmt.Sprintf("box.size[%d] must be positive", i))
			}
		}
	}

	m := cfg.Mesh
	if m.NX < 0 || m.NY < 0 || m.NZ < 0 {
		problems = append(problems, "mesh dimensions must not be negative")
	}
	if cfg.Output.ExtractSlices && (m.NX == 0 || m.NY == 0 || m.NZ == 0) {
		problems = append(problems, "output.extractSlices needs mesh nx, ny and nz")
	}
	switch cfg.Output.SliceColumn {
	case "dose_1m", "cdr":
	default:
		problems = append(problems, fmt.Sprintf("output.sliceColumn %q must be dose_1m or cdr", cfg.Output.SliceColumn))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
