package comparator

import (
	"context"
	"time"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "comparator")

// Outcome is the result of comparing one build image against its approved image
type Outcome int

const (
	Equal Outcome = iota
	BelowThreshold
	AboveThreshold
)

func (o Outcome) String() string {
	switch o {
	case BelowThreshold:
		return "belowThreshold"
	case AboveThreshold:
		return "aboveThreshold"
	default:
		return "equal"
	}
}

// Comparator decides whether a build image matches its approved image.
// Implementations may write a difference image to diffPath.
// A returned error means the comparison could not be made, never that the images differ.
type Comparator interface {
	Name() string
	Compare(ctx context.Context, buildPath, approvedPath, diffPath string) (Outcome, error)
}

// New creates the comparator configured for a comparison. timeout bounds each invocation, 0 means none.
func New(cfg models.ComparisonConfig, timeout time.Duration) (Comparator, error) {
	switch cfg.Type {
	case "", models.COMPARATOR_TYPE_PERCEPTUALDIFF:
		return NewPerceptualDiff(cfg.PerceptualDiff, timeout), nil
	case models.COMPARATOR_TYPE_CHECKSUM:
		return NewChecksum(), nil
	default:
		return nil, models.NewConfigurationError("type", "unknown comparator type %q, expected one of: %s, %s",
			cfg.Type, models.COMPARATOR_TYPE_PERCEPTUALDIFF, models.COMPARATOR_TYPE_CHECKSUM)
	}
}

func invocationError(c Comparator, buildPath string, err error) error {
	return &models.ComparatorInvocationError{Comparator: c.Name(), Screen: buildPath, Err: err}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
