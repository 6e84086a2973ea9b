package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/google/go-github/v66/github"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var logger = log.WithField("package", "github")

const COMMENTS_PAGE_SIZE = 100

// GitHubClient defines the interface for GitHub API operations
type GitHubClient interface {
	// GetPR retrieves pull request information
	GetPR(ctx context.Context, repo string, number int) (*models.PullRequest, error)
	// CreateComment creates a new comment on a pull request
	CreateComment(ctx context.Context, repo string, number int, body string) (*models.Comment, error)
	// UpdateComment updates an existing comment
	UpdateComment(ctx context.Context, repo string, commentID int64, body string) error
	// GetComments retrieves all comments for a pull request
	GetComments(ctx context.Context, repo string, number int) ([]*models.Comment, error)
	// FindToolComment looks up the first comment carrying marker, found is false when there is none
	FindToolComment(ctx context.Context, repo string, prNumber int, marker string) (comment *models.Comment, found bool, err error)
}

// Client handles GitHub API interactions using go-github
type Client struct {
	client *github.Client
}

// Ensure Client implements GitHubClient
var _ GitHubClient = (*Client)(nil)

// NewClient creates a new GitHub client from GH_TOKEN or GITHUB_TOKEN
func NewClient() (*Client, error) {
	token := os.Getenv("GH_TOKEN")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("GitHub token not found. Set GH_TOKEN or GITHUB_TOKEN environment variable")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{client: github.NewClient(oauth2.NewClient(context.Background(), ts))}, nil
}

// NewClientWithBaseURL creates a client against another API root, e.g. GitHub Enterprise
func NewClientWithBaseURL(httpClient *http.Client, baseURL string) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
	}
	client := github.NewClient(httpClient)
	client.BaseURL = u
	return &Client{client: client}, nil
}

// ParseOwnerRepo splits "owner/repo"
func ParseOwnerRepo(repo string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(repo), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", repo)
	}
	return parts[0], parts[1], nil
}

// repoPath splits repo for an API call named op
func repoPath(op, repo string) (string, string, error) {
	owner, name, err := ParseOwnerRepo(repo)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return owner, name, nil
}

func toComment(c *github.IssueComment) *models.Comment {
	return &models.Comment{ID: c.GetID(), Body: c.GetBody()}
}

// GetPR retrieves the PR number and head commit
func (c *Client) GetPR(ctx context.Context, repo string, number int) (*models.PullRequest, error) {
	owner, name, err := repoPath("get PR", repo)
	if err != nil {
		return nil, err
	}
	pr, _, err := c.client.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get PR %s#%d: %w", repo, number, err)
	}
	return &models.PullRequest{Number: pr.GetNumber(), HeadSHA: pr.GetHead().GetSHA()}, nil
}

func (c *Client) CreateComment(ctx context.Context, repo string, number int, body string) (*models.Comment, error) {
	owner, name, err := repoPath("create comment", repo)
	if err != nil {
		return nil, err
	}
	created, _, err := c.client.Issues.CreateComment(ctx, owner, name, number, &github.IssueComment{Body: github.String(body)})
	if err != nil {
		return nil, fmt.Errorf("failed to comment on %s#%d: %w", repo, number, err)
	}
	logger.WithField("commentId", created.GetID()).Debug("Created comment")
	return toComment(created), nil
}

func (c *Client) UpdateComment(ctx context.Context, repo string, commentID int64, body string) error {
	owner, name, err := repoPath("update comment", repo)
	if err != nil {
		return err
	}
	if _, _, err := c.client.Issues.EditComment(ctx, owner, name, commentID, &github.IssueComment{Body: github.String(body)}); err != nil {
		return fmt.Errorf("failed to update comment %d on %s: %w", commentID, repo, err)
	}
	logger.WithField("commentId", commentID).Debug("Updated comment")
	return nil
}

// GetComments lists every comment of the PR, following pagination
func (c *Client) GetComments(ctx context.Context, repo string, prNumber int) ([]*models.Comment, error) {
	var out []*models.Comment
	err := c.eachComment(ctx, repo, prNumber, func(comment *models.Comment) bool {
		out = append(out, comment)
		return true
	})
	return out, err
}

// FindToolComment stops paging at the first comment carrying marker
func (c *Client) FindToolComment(ctx context.Context, repo string, prNumber int, marker string) (*models.Comment, bool, error) {
	var match *models.Comment
	err := c.eachComment(ctx, repo, prNumber, func(comment *models.Comment) bool {
		if strings.Contains(comment.Body, marker) {
			match = comment
			return false
		}
		return true
	})
	if err != nil {
		return nil, false, err
	}
	return match, match != nil, nil
}

// eachComment calls fn for the PR comments in order until fn returns false
func (c *Client) eachComment(ctx context.Context, repo string, prNumber int, fn func(*models.Comment) bool) error {
	owner, name, err := repoPath("list comments", repo)
	if err != nil {
		return err
	}
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: COMMENTS_PAGE_SIZE}}
	for {
		page, resp, err := c.client.Issues.ListComments(ctx, owner, name, prNumber, opts)
		if err != nil {
			return fmt.Errorf("failed to list comments of %s#%d: %w", repo, prNumber, err)
		}
		for _, comment := range page {
			if !fn(toComment(comment)) {
				return nil
			}
		}
		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}
