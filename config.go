package batchply

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BatchConfig holds the parameters of one run. It is read once and not
// modified while the batch runs.
type BatchConfig struct {
	ImportDir  string  `yaml:"import_folder_path" toml:"import_folder_path" validate:"required,dir"`
	ExportDir  string  `yaml:"export_folder_path" toml:"export_folder_path" validate:"required,dir"`
	Scale      float64 `yaml:"scale_factor" toml:"scale_factor" validate:"finite,gt=0"`
	RotationX  float64 `yaml:"rotation_angle_x" toml:"rotation_angle_x" validate:"finite"`
	RotationY  float64 `yaml:"rotation_angle_y" toml:"rotation_angle_y" validate:"finite"`
	RotationZ  float64 `yaml:"rotation_angle_z" toml:"rotation_angle_z" validate:"finite"`
	BaseHeight float64 `yaml:"base_z_height" toml:"base_z_height" validate:"finite"`
}

func DefaultConfig() BatchConfig {
	return BatchConfig{Scale: 1.0}
}

// Rotation returns the configured Euler angles in degrees.
func (c *BatchConfig) Rotation() dvec3.T {
	return dvec3.T{c.RotationX, c.RotationY, c.RotationZ}
}

// LoadConfig reads a YAML or TOML file over DefaultConfig. The file type is
// chosen by extension.
func LoadConfig(path string) (BatchConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, &ConfigError{Err: errors.Wrap(err, "unable to read configuration file")}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return cfg, &ConfigError{Err: errors.Errorf("unsupported configuration file %q", filepath.Base(path))}
	}
	if err != nil {
		return cfg, &ConfigError{Err: errors.Wrap(err, "unable to parse configuration file")}
	}
	return cfg, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// Validate checks the option values and that the import folder can be listed
// and the export folder written to.
func (c *BatchConfig) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return &ConfigError{Err: errors.Wrap(err, "invalid configuration")}
	}
	if _, err := os.ReadDir(c.ImportDir); err != nil {
		return &ConfigError{Err: errors.Wrap(err, "import folder is not readable")}
	}
	scratch, err := os.CreateTemp(c.ExportDir, ".batchply-*")
	if err != nil {
		return &ConfigError{Err: errors.Wrap(err, "export folder is not writable")}
	}
	scratch.Close()
	os.Remove(scratch.Name())
	return nil
}
