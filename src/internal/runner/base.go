package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gh-nvat/vdiffchk/src/pkg/artifacts"
	"github.com/gh-nvat/vdiffchk/src/pkg/comparator"
	"github.com/gh-nvat/vdiffchk/src/pkg/history"
	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/gh-nvat/vdiffchk/src/pkg/pathbuilder"
	"github.com/gh-nvat/vdiffchk/src/pkg/policy"
	"github.com/gh-nvat/vdiffchk/src/pkg/reconcile"
	"github.com/gh-nvat/vdiffchk/src/pkg/template"
	"github.com/gh-nvat/vdiffchk/src/pkg/trace"

	log "github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var logger = log.WithField("package", "runner")

// Abort stages outside the reconciliation passes
const (
	ABORT_STAGE_SETUP    = "setup"
	ABORT_STAGE_LOCK     = "lock"
	ABORT_STAGE_POLICIES = "policies"
	ABORT_STAGE_SNAPSHOT = "snapshot"
	ABORT_STAGE_HISTORY  = "history"
	ABORT_STAGE_OUTPUT   = "output"
)

type RunnerBase struct {
	Context context.Context
	Options *Options

	RunMode string
	BuildID string

	Renderer  *template.Renderer
	Evaluator policy.PolicyEvaluatorInterface // nil when the step config names no policies

	StepConfig *models.StepConfig
	Project    *artifacts.Project
	Build      *artifacts.Build
	Workspace  *artifacts.Workspace
	Passes     []*reconcile.Pass
	Missing    reconcile.MissingPolicy

	// Instance is the outermost runner, so that Process reaches overridden methods
	Instance RunnerInterface
	// OnAbort sees every failure that ends Process without output, reconcile.LogAbort when nil
	OnAbort reconcile.AbortHook

	report *models.ReportData
	now    func() time.Time
}

// make RunnerBase implement RunnerInterface
var _ RunnerInterface = (*RunnerBase)(nil)

func NewRunnerBase(ctx context.Context, options *Options, renderer *template.Renderer) (*RunnerBase, error) {
	if options == nil {
		return nil, fmt.Errorf("options are required")
	}
	runner := &RunnerBase{
		Context:  ctx,
		Options:  options,
		RunMode:  options.RunMode,
		Renderer: renderer,
		now:      time.Now,
	}
	runner.Instance = runner
	return runner, nil
}

func (r *RunnerBase) Initialize() error {
	ctx, span := trace.StartSpan(r.Context, "Initialize")
	defer span.End()
	logger.Info("Initialize runner: starting...")

	if r.Renderer == nil {
		return fmt.Errorf("renderer is required")
	}

	cfg, err := LoadStepConfig(r.Options.ConfigPath)
	if err != nil {
		return err
	}
	r.StepConfig = cfg

	matrix := cfg.Matrix
	if r.Options.Matrix != "" {
		matrix = r.Options.Matrix
	}
	comparisons, err := pathbuilder.ExpandComparisons(cfg.Comparisons, matrix)
	if err != nil {
		return err
	}
	logger.WithField("comparisons", len(comparisons)).WithField("matrix", matrix).Debug("Expanded comparisons")

	r.BuildID = r.Options.ResolveBuildID(os.Getenv)
	r.Project = artifacts.NewProject(r.Options.ProjectDir)
	r.Build = artifacts.NewBuild(r.Options.BuildsDir, r.BuildID)
	r.Workspace = artifacts.NewWorkspace(r.Options.WorkspaceDir)

	seen := make(map[string]bool, len(comparisons))
	r.Passes = make([]*reconcile.Pass, 0, len(comparisons))
	for i, c := range comparisons {
		pc, err := reconcile.NewPassConfig(c, i)
		if err != nil {
			return err
		}
		if seen[pc.Name] {
			return models.NewConfigurationError(pc.Name+".name", "duplicate comparison name")
		}
		seen[pc.Name] = true
		if _, err := artifacts.CompilePattern(pc.ScreensPath); err != nil {
			return err
		}
		cmp, err := comparator.New(c, r.Options.CompareTimeout)
		if err != nil {
			return err
		}
		r.Passes = append(r.Passes, &reconcile.Pass{
			Config:     pc,
			Workspace:  r.Workspace,
			Build:      r.Build,
			Project:    r.Project,
			Comparator: cmp,
		})
	}

	if r.Missing, err = reconcile.NewMissingPolicy(*cfg); err != nil {
		return err
	}

	if len(cfg.Policies) > 0 {
		logger.Info("Initialize runner: Evaluator: Loading and validating policies")
		evaluator := policy.NewPolicyEvaluator(filepath.Dir(r.Options.ConfigPath), cfg.Policies)
		if err := evaluator.LoadAndValidate(ctx); err != nil {
			return fmt.Errorf("failed to load policies: %w", err)
		}
		r.Evaluator = evaluator
	}

	logger.WithField("buildId", r.BuildID).WithField("passes", len(r.Passes)).Info("Initialize runner: done.")
	return nil
}

// Reconcile expects the project lock to be held
func (r *RunnerBase) Reconcile() (*reconcile.Verdict, error) {
	ctx, span := trace.StartSpan(r.Context, "Reconcile")
	defer span.End()
	logger.Info("Reconcile: starting...")
	onAbort := r.abortHook(span)

	if err := r.Project.EnsureFoldersExist(); err != nil {
		onAbort(ABORT_STAGE_SETUP, err)
		return nil, err
	}
	if err := r.Build.EnsureFoldersExist(); err != nil {
		onAbort(ABORT_STAGE_SETUP, err)
		return nil, err
	}
	if err := r.Build.DuplicateApprovedFromProject(r.Project); err != nil {
		onAbort(ABORT_STAGE_SETUP, err)
		return nil, err
	}

	reconciler := &reconcile.Reconciler{
		Project: r.Project,
		Passes:  r.Passes,
		Missing: r.Missing,
		OnAbort: onAbort,
	}
	verdict, err := reconciler.Run(ctx)
	if err != nil {
		return nil, err
	}

	logger.WithField("result", verdict.Result.String()).Info("Reconcile: done.")
	return verdict, nil
}

func (r *RunnerBase) Process() error {
	ctx, span := trace.StartSpan(r.Context, "Process")
	defer span.End()
	logger.Info("Process: starting...")
	onAbort := r.abortHook(span)

	lock := artifacts.NewProjectLock(r.Project)
	if err := lock.Lock(); err != nil {
		onAbort(ABORT_STAGE_LOCK, err)
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.WithField("error", err).Warn("Failed to release project lock")
		}
	}()

	// Reconcile reports its own aborts
	verdict, err := r.Instance.Reconcile()
	if err != nil {
		return err
	}

	data := verdict.ReportData(r.BuildID)
	data.Timestamp = r.now()
	if err := r.evaluatePolicies(ctx, data); err != nil {
		onAbort(ABORT_STAGE_POLICIES, err)
		return err
	}

	if err := r.Build.SaveSnapshot(data.Screens); err != nil {
		onAbort(ABORT_STAGE_SNAPSHOT, err)
		return err
	}
	if err := r.recordHistory(ctx, data); err != nil {
		onAbort(ABORT_STAGE_HISTORY, err)
		return err
	}
	r.report = data

	if err := r.Instance.Output(data); err != nil {
		onAbort(ABORT_STAGE_OUTPUT, err)
		return err
	}
	logger.WithField("result", data.Result.String()).Info("Process: done.")
	return nil
}

// abortHook records the error on span before handing it to OnAbort
func (r *RunnerBase) abortHook(span oteltrace.Span) reconcile.AbortHook {
	hook := r.OnAbort
	if hook == nil {
		hook = reconcile.LogAbort
	}
	return func(stage string, err error) {
		span.RecordError(err)
		hook(stage, err)
	}
}

// Policies only ever worsen the verdict
func (r *RunnerBase) evaluatePolicies(ctx context.Context, data *models.ReportData) error {
	if r.Evaluator == nil {
		return nil
	}
	ctx, span := trace.StartSpan(ctx, "EvaluatePolicies")
	defer span.End()
	logger.Info("EvaluatePolicies: starting...")

	evaluation, err := r.Evaluator.Evaluate(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to evaluate policies: %w", err)
	}
	result := models.NewBuildResult(data.Result)
	policy.Apply(evaluation, result)
	data.Result = result.Result()
	data.PolicyEvaluation = evaluation

	logger.WithField("deny", len(evaluation.Deny)).WithField("warn", len(evaluation.Warn)).Info("EvaluatePolicies: done.")
	return nil
}

func (r *RunnerBase) recordHistory(ctx context.Context, data *models.ReportData) error {
	if r.Options.DisableHistory {
		return nil
	}
	ctx, span := trace.StartSpan(ctx, "RecordHistory")
	defer span.End()

	store, err := history.OpenForProject(r.Options.ProjectDir)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	return store.Record(ctx, history.Record{
		BuildID:         data.BuildID,
		RecordedAt:      data.Timestamp,
		Result:          data.Result,
		MissingApproved: data.MissingApproved,
		Summary:         data.Summary,
		Screens:         data.Screens,
	})
}

func (r *RunnerBase) Report() *models.ReportData {
	return r.report
}

func (r *RunnerBase) Output(data *models.ReportData) error {
	_, span := trace.StartSpan(r.Context, "Output")
	defer span.End()

	logger.Info("Output: starting...")
	if err := r.outputReportJson(data); err != nil {
		return err
	}
	if _, err := r.outputReportMarkdown(data); err != nil {
		return err
	}
	logger.Info("Output: done.")
	return nil
}

// Exporting report json file to output directory if enabled
func (r *RunnerBase) outputReportJson(data *models.ReportData) error {
	if !r.Options.EnableExportReport {
		logger.Info("OutputJson: option was disabled")
		return nil
	}
	logger.Info("OutputJson: starting...")

	if err := os.MkdirAll(r.Options.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	resultsJson, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	filePath := filepath.Join(r.Options.OutputDir, REPORT_JSON_FILE)
	if err := os.WriteFile(filePath, resultsJson, 0644); err != nil {
		logger.WithField("filePath", filePath).WithField("error", err).Error("Failed to write report data to file")
		return err
	}
	logger.WithField("filePath", filePath).Info("Written report data to file")
	return nil
}

// Rendering the markdown summary into the output directory, returns the rendered markdown
func (r *RunnerBase) outputReportMarkdown(data *models.ReportData) (string, error) {
	logger.Info("OutputMarkdown: starting...")
	rendered, err := r.Renderer.RenderWithTemplates(r.Options.TemplatesPath, data)
	if err != nil {
		logger.WithField("error", err).Error("Failed to render markdown template")
		return "", err
	}
	logger.WithField("renderedMarkdown", rendered).Debug("Rendered markdown")

	if err := os.MkdirAll(r.Options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	filePath := filepath.Join(r.Options.OutputDir, REPORT_MD_FILE)
	if err := os.WriteFile(filePath, []byte(rendered), 0644); err != nil {
		logger.WithField("filePath", filePath).WithField("error", err).Error("Failed to write markdown report")
		return "", err
	}
	logger.WithField("filePath", filePath).Info("Written markdown report")
	return rendered, nil
}

// ExitCode maps the verdict to the process exit code
func ExitCode(result models.Result, unstableExitCode int) int {
	switch result {
	case models.ResultFailure:
		return 1
	case models.ResultUnstable:
		return unstableExitCode
	default:
		return 0
	}
}
