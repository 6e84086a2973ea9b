package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/gh-nvat/vdiffchk/src/pkg/github"
	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/gh-nvat/vdiffchk/src/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGitHub struct {
	comments []*models.Comment
	nextID   int64
	prCalls  int
}

var _ github.GitHubClient = (*fakeGitHub)(nil)

func (f *fakeGitHub) GetPR(_ context.Context, _ string, number int) (*models.PullRequest, error) {
	f.prCalls++
	return &models.PullRequest{Number: number, HeadSHA: "deadbeef"}, nil
}

func (f *fakeGitHub) CreateComment(_ context.Context, _ string, _ int, body string) (*models.Comment, error) {
	f.nextID++
	c := &models.Comment{ID: f.nextID, Body: body}
	f.comments = append(f.comments, c)
	return c, nil
}

func (f *fakeGitHub) UpdateComment(_ context.Context, _ string, id int64, body string) error {
	for _, c := range f.comments {
		if c.ID == id {
			c.Body = body
		}
	}
	return nil
}

func (f *fakeGitHub) GetComments(context.Context, string, int) ([]*models.Comment, error) {
	return f.comments, nil
}

func (f *fakeGitHub) FindToolComment(_ context.Context, _ string, _ int, marker string) (*models.Comment, bool, error) {
	for _, c := range f.comments {
		if strings.Contains(c.Body, marker) {
			return c, true, nil
		}
	}
	return nil, false, nil
}

func TestRunnerGitHubKeepsOneComment(t *testing.T) {
	f := newFixture(t, checksumConfig)
	gh := &fakeGitHub{comments: []*models.Comment{{ID: 100, Body: "unrelated"}}}
	gh.nextID = 100

	runBuild := func(buildID string) {
		opts := f.options(buildID)
		opts.RunMode = RUN_MODE_GITHUB
		opts.GhRepo = "acme/shop"
		opts.GhPrNumber = 12
		opts.ProjectName = "shop-web"
		r, err := NewRunnerGitHub(context.Background(), opts, gh, template.NewRenderer())
		require.NoError(t, err)
		require.NoError(t, r.Initialize())
		require.NoError(t, r.Process())
	}

	f.shots(t, map[string]string{"home.png": "v1"})
	runBuild("1")
	require.Len(t, gh.comments, 2)
	assert.Contains(t, gh.comments[1].Body, "<!-- vdiffchk: shop-web - auto-generated comment")
	assert.Contains(t, gh.comments[1].Body, "Visual diff: success")
	assert.Contains(t, gh.comments[1].Body, "`deadbeef`")

	f.shots(t, map[string]string{"home.png": "v2"})
	runBuild("2")
	require.Len(t, gh.comments, 2, "second build updates the existing comment")
	assert.Contains(t, gh.comments[1].Body, "Visual diff: failure")
	assert.Equal(t, "unrelated", gh.comments[0].Body)
	assert.Equal(t, 2, gh.prCalls)
}

func TestNewRunnerGitHubRequiresClient(t *testing.T) {
	_, err := NewRunnerGitHub(context.Background(), &Options{}, nil, template.NewRenderer())
	assert.Error(t, err)
}
