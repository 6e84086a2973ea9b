package main

import (
	"context"
	"fmt"

	"github.com/gh-nvat/vdiffchk/src/internal/runner"
	"github.com/gh-nvat/vdiffchk/src/pkg/github"
	"github.com/gh-nvat/vdiffchk/src/pkg/template"
	"github.com/gh-nvat/vdiffchk/src/pkg/trace"
	"github.com/spf13/cobra"
)

func newRunCmd(g *globals) *cobra.Command {
	opts := &runner.Options{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile a build's screenshots and report the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProjectDir = g.projectDir()
			opts.BuildsDir = g.buildsDir()
			opts.Debug = g.v.GetBool("debug")
			return run(cmd.Context(), opts)
		},
	}

	// Run mode
	cmd.Flags().StringVar(&opts.RunMode, "run-mode", runner.RUN_MODE_LOCAL, "Run mode: github or local")

	// Inputs
	cmd.Flags().StringVar(&opts.ConfigPath, "config", runner.DEFAULT_CONFIG_FILE, "Step config file")
	cmd.Flags().StringVar(&opts.WorkspaceDir, "workspace", ".", "Workspace the screensPath patterns are matched in")
	cmd.Flags().StringVar(&opts.Matrix, "matrix", "", "Values for [VAR] placeholders, e.g. BROWSER=chrome,firefox;SIZE=s,l (replaces the config's matrix)")
	cmd.Flags().StringVar(&opts.BuildID, "build-id", "", "Build id (default: $BUILD_NUMBER, $GITHUB_RUN_ID, or a random uuid)")
	cmd.Flags().StringVar(&opts.ProjectName, "project-name", "", "Project name used in the PR comment marker (default: project dir name)")
	cmd.Flags().DurationVar(&opts.CompareTimeout, "compare-timeout", 0, "Timeout for a single image comparison, 0 for none")

	// Outputs
	cmd.Flags().StringVar(&opts.TemplatesPath, "templates-path", "", "Directory with a summary.md.tmpl overriding the built-in template")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "./output", "Output directory for report.md and the optional exports")
	cmd.Flags().BoolVar(&opts.EnableExportReport, "enable-export-report", false, "Enable export report (json file to output dir)")
	cmd.Flags().BoolVar(&opts.EnableExportPerformanceReport, "enable-export-performance-report", false, "Enable export performance report (trace json file to output dir)")
	cmd.Flags().BoolVar(&opts.DisableHistory, "disable-history", false, "Do not record the build in the project history")
	cmd.Flags().IntVar(&opts.UnstableExitCode, "unstable-exit-code", 0, "Exit code for an unstable build")

	// GitHub mode flags
	cmd.Flags().StringVar(&opts.GhRepo, "gh-repo", "", "GitHub repository (e.g., org/repo) [github mode]")
	cmd.Flags().IntVar(&opts.GhPrNumber, "gh-pr-number", 0, "GitHub PR number [github mode]")

	return cmd
}

// createRunner creates the appropriate runner for the run mode
func createRunner(ctx context.Context, opts *runner.Options) (runner.RunnerInterface, error) {
	logger.WithField("opts", opts).Debug("Creating runner..")
	renderer := template.NewRenderer()

	switch opts.RunMode {
	case runner.RUN_MODE_GITHUB:
		ghClient, err := github.NewClient()
		if err != nil {
			return nil, fmt.Errorf("GitHub authentication failed: %w", err)
		}
		r, err := runner.NewRunnerGitHub(ctx, opts, ghClient, renderer)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub runner: %w", err)
		}
		return r, nil
	case runner.RUN_MODE_LOCAL:
		r, err := runner.NewRunnerLocal(ctx, opts, renderer)
		if err != nil {
			return nil, fmt.Errorf("failed to create Local runner: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("invalid run mode: %s", opts.RunMode)
	}
}

func initialize(ctx context.Context, opts *runner.Options) (runner.RunnerInterface, error) {
	r, err := createRunner(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	if err := r.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize runner: %w", err)
	}
	return r, nil
}

func run(ctx context.Context, opts *runner.Options) error {
	logger.WithField("opts", opts).Info("Running..")
	if ctx == nil {
		ctx = context.Background()
	}

	// Validate options
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	// Initialize tracer
	shutdown, err := trace.InitTracer("vdiffchk", opts.EnableExportPerformanceReport, opts.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer shutdown()

	appRunner, err := initialize(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	if err := appRunner.Process(); err != nil {
		return fmt.Errorf("failed to process: %w", err)
	}

	result := appRunner.Report().Result
	code := runner.ExitCode(result, opts.UnstableExitCode)
	logger.WithField("result", result.String()).WithField("exitCode", code).Info("Build verdict")
	if code != 0 {
		return &exitError{code: code, result: result.String()}
	}
	return nil
}
