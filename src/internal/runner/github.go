package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/gh-nvat/vdiffchk/src/pkg/github"
	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/gh-nvat/vdiffchk/src/pkg/template"
	"github.com/gh-nvat/vdiffchk/src/pkg/trace"
)

// RunnerGitHub additionally keeps one summary comment per project up to date on the PR
type RunnerGitHub struct {
	RunnerBase

	options  *Options
	ghclient github.GitHubClient

	prInfo *models.PullRequest
}

// make RunnerGitHub implement RunnerInterface
var _ RunnerInterface = (*RunnerGitHub)(nil)

func NewRunnerGitHub(
	ctx context.Context,
	options *Options,
	ghclient github.GitHubClient,
	renderer *template.Renderer,
) (*RunnerGitHub, error) {
	if ghclient == nil {
		return nil, fmt.Errorf("GitHub client is not initialized")
	}
	baseRunner, err := NewRunnerBase(ctx, options, renderer)
	if err != nil {
		return nil, err
	}
	runner := &RunnerGitHub{
		RunnerBase: *baseRunner,
		ghclient:   ghclient,
		options:    options,
	}
	runner.Instance = runner
	return runner, nil
}

func (r *RunnerGitHub) Initialize() error {
	lg := logger.WithField("func", "RunnerGitHub.Initialize()")
	lg.Info("Initializing runner: starting...")

	pr, err := r.ghclient.GetPR(r.Context, r.options.GhRepo, r.options.GhPrNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch pull request info: %w", err)
	}
	r.prInfo = pr
	lg.WithField("pr", pr.Number).WithField("headSha", pr.HeadSHA).Info("Initializing runner: done.")
	return r.RunnerBase.Initialize()
}

func (r *RunnerGitHub) Output(data *models.ReportData) error {
	_, span := trace.StartSpan(r.Context, "Output")
	defer span.End()

	logger.Info("Output: starting...")
	if err := r.outputReportJson(data); err != nil {
		return err
	}
	rendered, err := r.outputReportMarkdown(data)
	if err != nil {
		return err
	}
	if err := r.outputGitHubComment(rendered); err != nil {
		return err
	}
	logger.Info("Output: done.")
	return nil
}

func (r *RunnerGitHub) commentSignature() string {
	return strings.ReplaceAll(template.ToolCommentSignature, template.ToolCommentProjectToken, r.options.ResolveProjectName())
}

// Post comment to GitHub PR
func (r *RunnerGitHub) outputGitHubComment(rendered string) error {
	logger.Info("OutputGitHubComment: starting...")

	commentSignature := r.commentSignature()
	finalComment := commentSignature + "\n\n" + rendered
	if r.prInfo != nil && r.prInfo.HeadSHA != "" {
		finalComment += fmt.Sprintf("\n_Head commit: `%s`_\n", r.prInfo.HeadSHA)
	}

	// We search for the comment signature to find this project's comment
	existingComment, found, err := r.ghclient.FindToolComment(r.Context, r.options.GhRepo, r.options.GhPrNumber, commentSignature)
	if err != nil {
		logger.WithField("error", err).Warn("Failed to find existing comment, will create new one")
	}

	if found {
		if err := r.ghclient.UpdateComment(r.Context, r.options.GhRepo, existingComment.ID, finalComment); err != nil {
			logger.WithField("error", err).Error("Failed to update existing comment")
			return err
		}
		logger.Info("Updated existing GitHub comment")
	} else {
		if _, err := r.ghclient.CreateComment(r.Context, r.options.GhRepo, r.options.GhPrNumber, finalComment); err != nil {
			logger.WithField("error", err).Error("Failed to create new comment")
			return err
		}
		logger.Info("Created new GitHub comment")
	}

	return nil
}
