package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
)

// ErrScreenNameConflict matches two passes archiving the same screen name
var ErrScreenNameConflict = errors.New("screen name archived by two passes")

// ScreenNameConflictError is raised before the later pass archives anything
type ScreenNameConflictError struct {
	Screen string
	First  string
	Second string
}

func (e *ScreenNameConflictError) Error() string {
	return fmt.Sprintf("screen %s is produced by pass %s and pass %s, give the comparisons distinct screens", e.Screen, e.First, e.Second)
}

func (e *ScreenNameConflictError) Is(target error) bool { return target == ErrScreenNameConflict }

// MissingPolicy is what happens when approved screens are absent from the build
type MissingPolicy struct {
	MarkAs          models.Action
	NumberOfMissing int
}

func NewMissingPolicy(cfg models.StepConfig) (MissingPolicy, error) {
	markAs, err := models.ParseAction(cfg.MarkAs)
	if err != nil {
		return MissingPolicy{}, models.NewConfigurationError("markAs", "%v", err)
	}
	threshold := cfg.EffectiveNumberOfMissing()
	if threshold < 0 {
		return MissingPolicy{}, models.NewConfigurationError("numberOfMissing", "must be >= 0, got %d", threshold)
	}
	return MissingPolicy{MarkAs: markAs, NumberOfMissing: threshold}, nil
}

// Verdict is the final outcome of a build's reconciliation
type Verdict struct {
	Result          models.Result
	Screens         *models.ScreenList
	Passes          []*PassResult
	MissingApproved int
	MissingTripped  bool
}

func (v *Verdict) ReportData(buildID string) *models.ReportData {
	passes := make([]models.PassReport, 0, len(v.Passes))
	for _, p := range v.Passes {
		passes = append(passes, p.Report())
	}
	return &models.ReportData{
		BuildID:         buildID,
		Result:          v.Result,
		Passes:          passes,
		MissingApproved: v.MissingApproved,
		MissingTripped:  v.MissingTripped,
		Summary:         v.Screens.Summary(),
		Screens:         v.Screens,
	}
}

// Decide merges the pass lists, accounts for approved screens no pass produced and applies the missing policy.
// It must only be given the results of passes that all completed.
func Decide(project ProjectStore, passes []*PassResult, policy MissingPolicy, result *models.BuildResult) (*Verdict, error) {
	logger.Info("Verdict: starting...")
	merged := models.NewScreenList()
	for _, p := range passes {
		merged.AddAll(p.Screens)
	}

	approved, err := project.ListApprovedScreens()
	if err != nil {
		return nil, err
	}
	missing := 0
	for _, name := range approved {
		if merged.Contains(name) {
			continue
		}
		screen := models.NewScreen(name)
		screen.MarkHasApprovedImage()
		screen.Approve()
		merged.Add(screen)
		missing++
		logger.WithField("screen", name).Debug("Approved screen missing from build")
	}

	v := &Verdict{Screens: merged, Passes: passes, MissingApproved: missing}
	if missing >= policy.NumberOfMissing {
		v.MissingTripped = true
		result.Apply(policy.MarkAs)
		logger.WithField("missing", missing).WithField("threshold", policy.NumberOfMissing).
			WithField("markAs", policy.MarkAs).Warn("Missing screens threshold reached")
	}
	v.Result = result.Result()

	logger.WithField("result", v.Result.String()).WithField("screens", merged.Len()).Info("Verdict: done.")
	return v, nil
}

// Reconciler runs every pass of a build in order, then decides the verdict
type Reconciler struct {
	Project ProjectStore
	Passes  []*Pass
	Missing MissingPolicy
	OnAbort AbortHook
}

func (r *Reconciler) abort(pass string, err error) error {
	hook := r.OnAbort
	if hook == nil {
		hook = LogAbort
	}
	hook(pass, err)
	return fmt.Errorf("pass %s: %w", pass, err)
}

// Run returns no verdict when any pass fails; the abort hook has seen the error by then
func (r *Reconciler) Run(ctx context.Context) (*Verdict, error) {
	result := &models.BuildResult{}
	results := make([]*PassResult, 0, len(r.Passes))
	claimed := make(map[string]string)
	for _, pass := range r.Passes {
		if err := ctx.Err(); err != nil {
			return nil, r.abort(pass.Config.Name, err)
		}
		sources, names, err := pass.Collect()
		if err != nil {
			return nil, r.abort(pass.Config.Name, err)
		}
		for _, name := range names {
			if owner, ok := claimed[name]; ok {
				return nil, r.abort(pass.Config.Name, &ScreenNameConflictError{Screen: name, First: owner, Second: pass.Config.Name})
			}
		}
		for _, name := range names {
			claimed[name] = pass.Config.Name
		}
		res, err := pass.run(ctx, result, sources)
		if err != nil {
			return nil, r.abort(pass.Config.Name, err)
		}
		results = append(results, res)
	}

	v, err := Decide(r.Project, results, r.Missing, result)
	if err != nil {
		return nil, r.abort("verdict", err)
	}
	return v, nil
}
