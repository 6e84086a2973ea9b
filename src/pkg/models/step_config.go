package models

// StepConfig is the build-step configuration (vdiff.yaml)
// - Comparisons: ordered list, one reconciliation pass each (more after matrix expansion)
// - MarkAs / NumberOfMissing: what to do when approved screens are missing from the build
type StepConfig struct {
	Comparisons     []ComparisonConfig `yaml:"comparisons"`
	MarkAs          string             `yaml:"markAs"`
	NumberOfMissing *int               `yaml:"numberOfMissing"`
	Matrix          string             `yaml:"matrix,omitempty"`   // [VAR] values: "KEY=v1,v2;KEY2=v3"
	Policies        []string           `yaml:"policies,omitempty"` // rego files, relative to the config file
}

// ComparisonConfig configures one comparison
type ComparisonConfig struct {
	Name                string               `yaml:"name,omitempty"`
	Type                string               `yaml:"type"` // "perceptualdiff" or "checksum"
	ScreensPath         string               `yaml:"screensPath"`
	AutoApprove         bool                 `yaml:"autoApprove"`
	MarkAs              string               `yaml:"markAs"`
	NumberOfDifferences *int                 `yaml:"numberOfDifferences"`
	PerceptualDiff      PerceptualDiffConfig `yaml:"perceptualdiff,omitempty"`

	// ScreenPrefix is set on matrix-expanded comparisons so that every leg archives distinct screen names
	ScreenPrefix string `yaml:"-"`
}

// PerceptualDiffConfig holds the perceptualdiff tunables, unset values take the tool defaults
type PerceptualDiffConfig struct {
	BinaryPath    string   `yaml:"binaryPath,omitempty"`
	Verbose       bool     `yaml:"verbose,omitempty"`
	Fov           *float64 `yaml:"fov,omitempty"`
	Threshold     *int     `yaml:"threshold,omitempty"`
	Gamma         *float64 `yaml:"gamma,omitempty"`
	Luminance     *float64 `yaml:"luminance,omitempty"`
	LuminanceOnly bool     `yaml:"luminanceOnly,omitempty"`
	ColorFactor   *float64 `yaml:"colorFactor,omitempty"`
	DownSample    *int     `yaml:"downSample,omitempty"`
}

const (
	COMPARATOR_TYPE_PERCEPTUALDIFF = "perceptualdiff"
	COMPARATOR_TYPE_CHECKSUM       = "checksum"

	DEFAULT_NUMBER_OF_DIFFERENCES = 1
	DEFAULT_NUMBER_OF_MISSING     = 1
)

func (c ComparisonConfig) EffectiveNumberOfDifferences() int {
	if c.NumberOfDifferences == nil {
		return DEFAULT_NUMBER_OF_DIFFERENCES
	}
	return *c.NumberOfDifferences
}

func (c StepConfig) EffectiveNumberOfMissing() int {
	if c.NumberOfMissing == nil {
		return DEFAULT_NUMBER_OF_MISSING
	}
	return *c.NumberOfMissing
}
