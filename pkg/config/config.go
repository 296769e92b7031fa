// Package config handles urnlab configuration loading.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/r3d91ll/urnlab/pkg/errors"
)

// Design modes.
const (
	DesignBetween = "between"
	DesignWithin  = "within"
)

// Urn kinds as spelled in configuration files.
const (
	UrnFixed  = "fixed"
	UrnRandom = "random"
)

// Config is the root configuration structure.
type Config struct {
	Experiment   ExperimentConfig   `yaml:"experiment"`
	Demographics DemographicsConfig `yaml:"demographics"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Session      SessionConfig      `yaml:"session"`
	Monitor      MonitorConfig      `yaml:"monitor"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ExperimentConfig describes the design and the urns of every condition.
type ExperimentConfig struct {
	// Design is "between" (one condition per participant, round-robin)
	// or "within" (every condition, shuffled).
	Design string `yaml:"design" validate:"oneof=between within"`

	// MinAge is the minimum age to take part.
	MinAge int `yaml:"min_age" validate:"gte=0"`

	// Seed fixes the random source. 0 means a fresh seed per session.
	Seed uint64 `yaml:"seed"`

	// Geometry is the trial layout as x, y, width, height.
	Geometry []int `yaml:"geometry" validate:"len=4,dive,gte=0"`

	// Transition is how long the ball-drop animation blocks input.
	Transition time.Duration `yaml:"transition" validate:"gte=0"`

	// ImageDir holds urn.png and ball_<color>.png for graphical front ends.
	ImageDir string `yaml:"image_dir"`

	Conditions []ConditionConfig `yaml:"conditions" validate:"min=1,dive"`
}

// ConditionConfig is one named group of urns shown together.
type ConditionConfig struct {
	Name string      `yaml:"name" validate:"required"`
	Urns []UrnConfig `yaml:"urns" validate:"min=2,dive"`
}

// UrnConfig describes one urn. Fixed urns list Counts; random urns give Size.
type UrnConfig struct {
	Name   string   `yaml:"name" validate:"required"`
	Kind   string   `yaml:"kind" validate:"oneof=fixed random"`
	Colors []string `yaml:"colors" validate:"min=2,unique,dive,required"`
	Counts []int    `yaml:"counts,omitempty" validate:"omitempty,dive,gte=0"`
	Size   int      `yaml:"size,omitempty" validate:"gte=0"`
}

// DemographicsConfig lists the answer options offered on the demographics page.
type DemographicsConfig struct {
	Genders         []string `yaml:"genders" validate:"min=1,dive,required"`
	EducationLevels []string `yaml:"education_levels" validate:"min=1,dive,required"`
	Races           []string `yaml:"races" validate:"min=1,dive,required"`
}

// LedgerConfig locates the participant ledger.
type LedgerConfig struct {
	DataDir string `yaml:"data_dir"`

	// Path overrides <data_dir>/<design>_data.csv.
	Path string `yaml:"path,omitempty"`

	// SQLitePath enables a SQLite copy of every finalized record.
	SQLitePath string `yaml:"sqlite_path,omitempty"`
}

// SessionConfig holds per-participant export settings.
type SessionConfig struct {
	ExportDir  string `yaml:"export_dir"`
	AutoExport bool   `yaml:"auto_export"`
}

// MonitorConfig controls the experimenter websocket feed.
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// Default returns the default configuration: three within-subject
// conditions, each pairing a random-mix urn with an equal-split urn.
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Design:     DesignWithin,
			MinAge:     18,
			Geometry:   []int{100, 100, 800, 600},
			Transition: time.Second,
			ImageDir:   "images",
			Conditions: []ConditionConfig{
				pairedCondition("size2", 2),
				pairedCondition("size10", 10),
				pairedCondition("size100", 100),
			},
		},
		Demographics: DemographicsConfig{
			Genders: []string{"Female", "Male", "Non-binary", "Prefer not to say"},
			EducationLevels: []string{
				"Less than high school",
				"High school",
				"Some college",
				"Bachelor's degree",
				"Master's degree",
				"Doctorate",
			},
			Races: []string{
				"American Indian or Alaska Native",
				"Asian",
				"Black or African American",
				"Native Hawaiian or Other Pacific Islander",
				"White",
				"Multiracial",
				"Prefer not to say",
			},
		},
		Ledger: LedgerConfig{
			DataDir: ".",
		},
		Session: SessionConfig{
			ExportDir:  "./sessions",
			AutoExport: true,
		},
		Monitor: MonitorConfig{
			Enabled: false,
			Addr:    "localhost:8091",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "urnlab.log",
		},
	}
}

func pairedCondition(name string, size int) ConditionConfig {
	colors := []string{"blue", "red"}
	return ConditionConfig{
		Name: name,
		Urns: []UrnConfig{
			{Name: fmt.Sprintf("urn_%d_random", size), Kind: UrnRandom, Colors: colors, Size: size},
			{Name: fmt.Sprintf("urn_%d_equal", size), Kind: UrnFixed, Colors: colors, Counts: []int{size / 2, size - size/2}},
		},
	}
}

// Load loads configuration from a file on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfig(err, errors.ErrConfigReadFailed, "failed to read config").
			WithContext("path", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrConfigParseFailed, "failed to parse config").
			WithContext("path", path).
			WithSuggestion("Run 'urnlab init --force' to regenerate a valid config")
	}

	if err := cfg.Validate(); err != nil {
		if e, ok := errors.As(err); ok {
			e.WithContext("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config from path, or returns the default if the file is absent.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WrapConfig(err, errors.ErrConfigWriteFailed, "failed to create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapConfig(err, errors.ErrConfigWriteFailed, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.WrapConfig(err, errors.ErrConfigWriteFailed, "failed to write config file").
			WithContext("path", path)
	}
	return nil
}

// DefaultConfigPath returns the config path used when none is given.
func DefaultConfigPath() string {
	if _, err := os.Stat("urnlab.yaml"); err == nil {
		return "urnlab.yaml"
	}
	if _, err := os.Stat("config/urnlab.yaml"); err == nil {
		return "config/urnlab.yaml"
	}
	return "urnlab.yaml"
}

// InitConfig creates a default config file. An existing file is kept unless force is set.
func InitConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return nil
	}
	return Default().Save(path)
}

// LedgerPath returns the participant ledger file for the configured design.
func (c *Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return filepath.Join(c.Ledger.DataDir, c.Experiment.Design+"_data.csv")
}

// UrnImagePath returns the image shown for every urn.
func (c *Config) UrnImagePath() string {
	return filepath.Join(c.Experiment.ImageDir, "urn.png")
}

// BallImagePath returns the image for a drawn ball of the given color.
func (c *Config) BallImagePath(color string) string {
	return filepath.Join(c.Experiment.ImageDir, "ball_"+color+".png")
}

// SlogLevel maps the configured level onto slog.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml field names so messages match the file the experimenter edits.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags and the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		e := errors.ConfigError(errors.ErrConfigInvalid, "invalid configuration")
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				e.WithContext(fe.Namespace(), describe(fe))
			}
		}
		return e.WithCause(err)
	}

	if c.Experiment.Geometry[2] == 0 || c.Experiment.Geometry[3] == 0 {
		return invalid("experiment.geometry", "width and height must be positive")
	}
	if c.Monitor.Enabled && c.Monitor.Addr == "" {
		return invalid("monitor.addr", "required when the monitor is enabled")
	}

	conditions := make(map[string]bool)
	for _, cond := range c.Experiment.Conditions {
		if conditions[cond.Name] {
			return invalid("experiment.conditions", "duplicate condition "+cond.Name)
		}
		conditions[cond.Name] = true

		urns := make(map[string]bool)
		for _, u := range cond.Urns {
			field := "experiment.conditions." + cond.Name + "." + u.Name
			if urns[u.Name] {
				return invalid(field, "duplicate urn name in condition")
			}
			urns[u.Name] = true

			switch u.Kind {
			case UrnFixed:
				if len(u.Counts) != len(u.Colors) {
					return invalid(field, fmt.Sprintf("fixed urn needs %d counts, got %d", len(u.Colors), len(u.Counts)))
				}
				total := 0
				for _, n := range u.Counts {
					total += n
				}
				if total == 0 {
					return invalid(field, "fixed urn holds no balls")
				}
			case UrnRandom:
				if len(u.Counts) > 0 {
					return invalid(field, "random urn must not list counts")
				}
				if u.Size == 0 {
					return invalid(field, "random urn needs a positive size")
				}
			}
		}
	}
	return nil
}

func invalid(field, message string) error {
	return errors.ConfigError(errors.ErrConfigInvalid, "invalid configuration").
		WithContext(field, message)
}

func describe(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("failed %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("failed %s (got %v)", fe.Tag(), fe.Value())
}
