package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/gh-nvat/vdiffchk/src/pkg/artifacts"
	"github.com/gh-nvat/vdiffchk/src/pkg/comparator"
	"github.com/gh-nvat/vdiffchk/src/pkg/models"
)

// PassConfig is one comparison, validated
type PassConfig struct {
	Name                string
	ScreensPath         string
	ScreenPrefix        string
	AutoApprove         bool
	MarkAs              models.Action
	NumberOfDifferences int
}

// NewPassConfig validates a comparison config. index names unnamed comparisons.
func NewPassConfig(cfg models.ComparisonConfig, index int) (PassConfig, error) {
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("comparison-%d", index+1)
	}
	if cfg.ScreensPath == "" {
		return PassConfig{}, models.NewConfigurationError(name+".screensPath", "must not be empty")
	}
	markAs, err := models.ParseAction(cfg.MarkAs)
	if err != nil {
		return PassConfig{}, models.NewConfigurationError(name+".markAs", "%v", err)
	}
	threshold := cfg.EffectiveNumberOfDifferences()
	if threshold < 1 {
		return PassConfig{}, models.NewConfigurationError(name+".numberOfDifferences", "must be >= 1, got %d", threshold)
	}
	return PassConfig{
		Name:                name,
		ScreensPath:         cfg.ScreensPath,
		ScreenPrefix:        cfg.ScreenPrefix,
		AutoApprove:         cfg.AutoApprove,
		MarkAs:              markAs,
		NumberOfDifferences: threshold,
	}, nil
}

// Pass reconciles one comparison's screenshots against the baseline
type Pass struct {
	Config     PassConfig
	Workspace  Workspace
	Build      BuildStore
	Project    ProjectStore
	Comparator comparator.Comparator
}

// PassResult is the outcome of one pass
type PassResult struct {
	Name        string
	ScreensPath string
	Comparator  string
	Screens     *models.ScreenList
	FailedCount int
	Threshold   int
	Tripped     bool
	MarkAs      models.Action
}

func (r *PassResult) Report() models.PassReport {
	return models.PassReport{
		Name:        r.Name,
		ScreensPath: r.ScreensPath,
		Comparator:  r.Comparator,
		FailedCount: r.FailedCount,
		Threshold:   r.Threshold,
		Tripped:     r.Tripped,
		MarkAs:      r.MarkAs,
		Summary:     r.Screens.Summary(),
	}
}

// Collect resolves the workspace files of the pass and the screen names they will be archived under
func (p *Pass) Collect() (sources []string, names []string, err error) {
	sources, err = p.Workspace.Match(p.Config.ScreensPath)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		name := artifacts.ScreenName(p.Config.ScreenPrefix, src)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return sources, names, nil
}

// Run archives, classifies and applies the pass threshold to result.
// Any error aborts the pass, result is untouched in that case.
func (p *Pass) Run(ctx context.Context, result *models.BuildResult) (*PassResult, error) {
	sources, _, err := p.Collect()
	if err != nil {
		return nil, err
	}
	return p.run(ctx, result, sources)
}

func (p *Pass) run(ctx context.Context, result *models.BuildResult, sources []string) (*PassResult, error) {
	log := logger.WithField("pass", p.Config.Name)
	log.Info("Pass: starting...")

	log.WithField("pattern", p.Config.ScreensPath).WithField("count", len(sources)).Info("Archiving screens...")
	names, err := p.Build.ArchiveIncoming(p.Config.ScreenPrefix, sources)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	screens := models.NewScreenList()
	for _, name := range names {
		screen, err := p.classify(ctx, name)
		if err != nil {
			return nil, err
		}
		log.WithField("screen", name).WithField("classification", screen.Classification().String()).Debug("Classified screen")
		screens.Add(screen)
	}

	out := &PassResult{
		Name:        p.Config.Name,
		ScreensPath: p.Config.ScreensPath,
		Comparator:  p.Comparator.Name(),
		Screens:     screens,
		FailedCount: len(screens.ExistingAboveThresholdScreens()) + len(screens.NewUnapprovedScreens()),
		Threshold:   p.Config.NumberOfDifferences,
		MarkAs:      p.Config.MarkAs,
	}
	if out.FailedCount >= out.Threshold {
		out.Tripped = true
		result.Apply(p.Config.MarkAs)
		log.WithField("failed", out.FailedCount).WithField("threshold", out.Threshold).
			WithField("markAs", p.Config.MarkAs).Warn("Pass threshold reached")
	}

	log.WithField("screens", screens.Len()).WithField("failed", out.FailedCount).Info("Pass: done.")
	return out, nil
}

func (p *Pass) classify(ctx context.Context, name string) (*models.Screen, error) {
	screen := models.NewScreen(name)
	screen.MarkHasBuildImage()

	hasApproved, err := p.Build.HasApprovedScreen(name)
	if err != nil {
		return nil, err
	}
	if hasApproved {
		screen.MarkHasApprovedImage()
		if err := p.Build.RemoveDiff(name); err != nil {
			return nil, err
		}
		outcome, err := p.Comparator.Compare(ctx, p.Build.BuildScreenPath(name), p.Build.ApprovedScreenPath(name), p.Build.DiffPath(name))
		if err != nil {
			return nil, err
		}
		switch outcome {
		case comparator.AboveThreshold:
			screen.MarkExistingDifferentAboveThreshold()
		case comparator.BelowThreshold:
			screen.MarkExistingDifferentBelowThreshold()
		default:
			screen.MarkExistingEqual()
		}
		return screen, nil
	}

	if !p.Config.AutoApprove {
		screen.MarkNewUnapproved()
		return screen, nil
	}

	screen.MarkNewAutoApproved()
	src := p.Build.BuildScreenPath(name)
	if err := p.Project.ImportApprovedScreen(name, src); err != nil {
		return nil, err
	}
	if err := p.Build.ImportApprovedScreen(name, src); err != nil {
		return nil, err
	}
	screen.Approve()
	return screen, nil
}
