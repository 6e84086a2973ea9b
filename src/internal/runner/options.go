package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RUN_MODE_GITHUB = "github"
	RUN_MODE_LOCAL  = "local"

	DEFAULT_CONFIG_FILE = "vdiff.yaml"
	REPORT_JSON_FILE    = "report.json"
	REPORT_MD_FILE      = "report.md"
)

type Options struct {
	// Run mode
	RunMode string // "github" or "local"
	Debug   bool   // Debug mode

	// Inputs
	ConfigPath   string // step config (vdiff.yaml)
	WorkspaceDir string // root the screensPath patterns are matched against
	Matrix       string // [VAR] values "KEY=v1,v2;KEY2=v3", replaces the config's matrix when set

	// Stores
	ProjectDir  string // holds the approved baseline (vDiff/), the lock and history.db
	ProjectName string // shown in the PR comment marker, defaults to the project dir name
	BuildsDir   string // every build gets <builds-dir>/<build-id>/vDiff/
	BuildID     string

	// Comparison
	CompareTimeout time.Duration // 0 = no timeout

	// Outputs
	TemplatesPath                 string
	OutputDir                     string
	EnableExportReport            bool
	EnableExportPerformanceReport bool
	DisableHistory                bool
	UnstableExitCode              int

	// GitHub mode options
	GhRepo     string
	GhPrNumber int
}

// ResolveBuildID picks the build id: flag, then BUILD_NUMBER, then GITHUB_RUN_ID, then a random uuid
func (o *Options) ResolveBuildID(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	if id := strings.TrimSpace(o.BuildID); id != "" {
		return id
	}
	for _, env := range []string{"BUILD_NUMBER", "GITHUB_RUN_ID"} {
		if id := strings.TrimSpace(getenv(env)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

func (o *Options) ResolveProjectName() string {
	if o.ProjectName != "" {
		return o.ProjectName
	}
	abs, err := filepath.Abs(o.ProjectDir)
	if err != nil {
		return filepath.Base(o.ProjectDir)
	}
	return filepath.Base(abs)
}

// Validate checks the options that do not need the step config
func (o *Options) Validate() error {
	if o.RunMode != RUN_MODE_GITHUB && o.RunMode != RUN_MODE_LOCAL {
		return fmt.Errorf("run-mode must be 'github' or 'local', got: %s", o.RunMode)
	}
	if o.ConfigPath == "" {
		return fmt.Errorf("--config is required")
	}
	if o.ProjectDir == "" {
		return fmt.Errorf("--project-dir is required")
	}
	if o.BuildsDir == "" {
		return fmt.Errorf("--builds-dir is required")
	}
	if o.CompareTimeout < 0 {
		return fmt.Errorf("--compare-timeout must not be negative, got: %s", o.CompareTimeout)
	}
	if o.UnstableExitCode < 0 || o.UnstableExitCode > 125 {
		return fmt.Errorf("--unstable-exit-code must be within 0..125, got: %d", o.UnstableExitCode)
	}
	if o.RunMode == RUN_MODE_GITHUB {
		if o.GhRepo == "" {
			return fmt.Errorf("github mode requires --gh-repo")
		}
		if o.GhPrNumber == 0 {
			return fmt.Errorf("github mode requires --gh-pr-number")
		}
	}
	return nil
}
