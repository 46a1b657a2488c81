// Package config loads and validates the scan engine's ScanEngineConfig
// from YAML, the way this tree's services are configured
// (gopkg.in/yaml.v3) and validated (github.com/go-playground/validator/v10,
// adapted from pkg/validation).
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ScanEngineConfig configures a tree's ScanContext and the LSM shape the
// scan engine walks.
type ScanEngineConfig struct {
	// ScanMax bounds the number of concurrent scans a ScanContext will
	// hand out buffers to
	ScanMax int `yaml:"scan_max" validate:"required,min=1,max=256"`

	// LevelCount is the number of LSM levels the manifest tracks; each
	// level costs one LevelBuffer (index block + data block) per
	// concurrent scan.
	LevelCount int `yaml:"level_count" validate:"required,min=1,max=32"`

	// IndexBlockSize and DataBlockSize bound the on-disk block sizes the
	// write/compaction path (out of scope) produces. They are loaded and
	// validated only; nothing in the scan engine reads them.
	IndexBlockSize int `yaml:"index_block_size" validate:"required,min=512"`
	DataBlockSize  int `yaml:"data_block_size" validate:"required,min=512"`

	// GridLoopCapacity bounds pkg/grid.Loop's pending-task queue.
	GridLoopCapacity int `yaml:"grid_loop_capacity" validate:"required,min=16"`
}

// DefaultScanEngineConfig returns a config sized for a small local tree.
func DefaultScanEngineConfig() ScanEngineConfig {
	return ScanEngineConfig{
		ScanMax:          10,
		LevelCount:       7,
		IndexBlockSize:   64 * 1024,
		DataBlockSize:    64 * 1024,
		GridLoopCapacity: 256,
	}
}

var validate = validator.New()

// Validate applies struct-tag validation, formatting the first failure
// with formatValidationError.
func (c ScanEngineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Load reads and validates a ScanEngineConfig from a YAML file at path.
func Load(path string) (ScanEngineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ScanEngineConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultScanEngineConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return ScanEngineConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return ScanEngineConfig{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	for _, e := range validationErrs {
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", e.Field())
		case "min":
			return fmt.Errorf("%s: must be at least %s", e.Field(), e.Param())
		case "max":
			return fmt.Errorf("%s: must not exceed %s", e.Field(), e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", e.Field(), e.Tag())
		}
	}
	return err
}
