package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"gopkg.in/yaml.v3"
)

// LoadStepConfig reads and validates the step config. Unknown fields are rejected.
func LoadStepConfig(path string) (*models.StepConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseStepConfig(content)
}

func ParseStepConfig(content []byte) (*models.StepConfig, error) {
	var cfg models.StepConfig
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, models.NewConfigurationError("config", "%v", err)
	}
	if err := ValidateStepConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateStepConfig checks the comparator tunables. Thresholds and actions are validated when the
// passes are built.
func ValidateStepConfig(cfg *models.StepConfig) error {
	if len(cfg.Comparisons) == 0 {
		return models.NewConfigurationError("comparisons", "at least one comparison is required")
	}
	for i, c := range cfg.Comparisons {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("comparison-%d", i+1)
		}
		if err := validatePerceptualDiff(name, c.PerceptualDiff); err != nil {
			return err
		}
	}
	return nil
}

func validatePerceptualDiff(name string, p models.PerceptualDiffConfig) error {
	field := func(f string) string { return name + ".perceptualdiff." + f }

	if p.Fov != nil && (*p.Fov < 0.1 || *p.Fov > 89.9) {
		return models.NewConfigurationError(field("fov"), "must be within 0.1..89.9, got %v", *p.Fov)
	}
	if p.ColorFactor != nil && (*p.ColorFactor < 0 || *p.ColorFactor > 1) {
		return models.NewConfigurationError(field("colorFactor"), "must be within 0..1, got %v", *p.ColorFactor)
	}
	if p.Threshold != nil && *p.Threshold < 0 {
		return models.NewConfigurationError(field("threshold"), "must be >= 0, got %d", *p.Threshold)
	}
	if p.DownSample != nil && *p.DownSample < 0 {
		return models.NewConfigurationError(field("downSample"), "must be >= 0, got %d", *p.DownSample)
	}
	if p.Gamma != nil && *p.Gamma < 0 {
		return models.NewConfigurationError(field("gamma"), "must be >= 0, got %v", *p.Gamma)
	}
	if p.Luminance != nil && *p.Luminance < 0 {
		return models.NewConfigurationError(field("luminance"), "must be >= 0, got %v", *p.Luminance)
	}
	return nil
}
