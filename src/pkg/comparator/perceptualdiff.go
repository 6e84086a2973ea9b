package comparator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
)

const (
	PERCEPTUALDIFF_BINARY = "perceptualdiff"

	DEFAULT_FOV          = 45.0
	DEFAULT_THRESHOLD    = 100
	DEFAULT_GAMMA        = 2.2
	DEFAULT_LUMINANCE    = 100.0
	DEFAULT_COLOR_FACTOR = 1.0
	DEFAULT_DOWN_SAMPLE  = 0
)

// PerceptualDiff runs the perceptualdiff tool on each pair of images.
//
// The tool exits non-zero when the images differ beyond its threshold (AboveThreshold).
// A zero exit that still wrote the -output image means the images differ within tolerance (BelowThreshold).
// A zero exit with no output image means the images are equal.
// diffPath must not exist before Compare, the caller clears stale diffs.
type PerceptualDiff struct {
	BinaryPath    string
	Verbose       bool
	Fov           float64
	Threshold     int
	Gamma         float64
	Luminance     float64
	LuminanceOnly bool
	ColorFactor   float64
	DownSample    int
	Timeout       time.Duration
}

// Ensure PerceptualDiff implements Comparator
var _ Comparator = (*PerceptualDiff)(nil)

// NewPerceptualDiff creates a comparator from config, unset tunables take the tool defaults
func NewPerceptualDiff(cfg models.PerceptualDiffConfig, timeout time.Duration) *PerceptualDiff {
	p := &PerceptualDiff{
		BinaryPath:    PERCEPTUALDIFF_BINARY,
		Verbose:       cfg.Verbose,
		Fov:           DEFAULT_FOV,
		Threshold:     DEFAULT_THRESHOLD,
		Gamma:         DEFAULT_GAMMA,
		Luminance:     DEFAULT_LUMINANCE,
		LuminanceOnly: cfg.LuminanceOnly,
		ColorFactor:   DEFAULT_COLOR_FACTOR,
		DownSample:    DEFAULT_DOWN_SAMPLE,
		Timeout:       timeout,
	}
	if cfg.BinaryPath != "" {
		p.BinaryPath = cfg.BinaryPath
	}
	if cfg.Fov != nil {
		p.Fov = *cfg.Fov
	}
	if cfg.Threshold != nil {
		p.Threshold = *cfg.Threshold
	}
	if cfg.Gamma != nil {
		p.Gamma = *cfg.Gamma
	}
	if cfg.Luminance != nil {
		p.Luminance = *cfg.Luminance
	}
	if cfg.ColorFactor != nil {
		p.ColorFactor = *cfg.ColorFactor
	}
	if cfg.DownSample != nil {
		p.DownSample = *cfg.DownSample
	}
	return p
}

func (p *PerceptualDiff) Name() string {
	return models.COMPARATOR_TYPE_PERCEPTUALDIFF
}

// Args returns the command line arguments for one comparison
func (p *PerceptualDiff) Args(buildPath, approvedPath, diffPath string) []string {
	args := []string{}
	if p.Verbose {
		args = append(args, "-verbose")
	}
	args = append(args,
		"-fov", formatFloat(p.Fov),
		"-threshold", strconv.Itoa(p.Threshold),
		"-gamma", formatFloat(p.Gamma),
		"-luminance", formatFloat(p.Luminance),
	)
	if p.LuminanceOnly {
		args = append(args, "-luminanceonly")
	}
	args = append(args,
		"-colorfactor", formatFloat(p.ColorFactor),
		"-downsample", strconv.Itoa(p.DownSample),
		"-output", diffPath,
		approvedPath,
		buildPath,
	)
	return args
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (p *PerceptualDiff) Compare(ctx context.Context, buildPath, approvedPath, diffPath string) (Outcome, error) {
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	args := p.Args(buildPath, approvedPath, diffPath)
	logger.WithField("binary", p.BinaryPath).WithField("args", args).Debug("Running perceptualdiff...")
	cmd := exec.CommandContext(ctx, p.BinaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	entry := logger.WithField("screen", buildPath)
	if stdout.Len() > 0 {
		entry.Debugf("perceptualdiff stdout:\n%s", stdout.String())
	}
	if stderr.Len() > 0 {
		entry.Debugf("perceptualdiff stderr:\n%s", stderr.String())
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Equal, invocationError(p, buildPath, fmt.Errorf("perceptualdiff interrupted: %w", ctxErr))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			entry.WithField("exitCode", exitErr.ExitCode()).Debug("Images differ above threshold")
			return AboveThreshold, nil
		}
		return Equal, invocationError(p, buildPath, fmt.Errorf("perceptualdiff failed: %w\nStderr: %s", err, stderr.String()))
	}

	if _, err := os.Stat(diffPath); err == nil {
		return BelowThreshold, nil
	}
	return Equal, nil
}
