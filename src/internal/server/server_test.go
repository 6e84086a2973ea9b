package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gh-nvat/vdiffchk/src/pkg/artifacts"
	"github.com/gh-nvat/vdiffchk/src/pkg/history"
	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server  *httptest.Server
	project *artifacts.Project
	build   *artifacts.Build
}

// newFixture prepares build "7" with one unapproved screen, home.png
func newFixture(t *testing.T, user, pass string) *fixture {
	t.Helper()
	root := t.TempDir()
	projectDir := filepath.Join(root, "project")
	buildsDir := filepath.Join(root, "builds")

	build := artifacts.NewBuild(buildsDir, "7")
	require.NoError(t, build.EnsureFoldersExist())
	src := filepath.Join(root, "home.png")
	require.NoError(t, os.WriteFile(src, []byte("pixels"), 0644))
	_, err := build.ArchiveIncoming("", []string{src})
	require.NoError(t, err)
	screen := models.NewScreen("home.png")
	screen.MarkNewUnapproved()
	require.NoError(t, build.SaveSnapshot(models.NewScreenList(screen)))

	srv := httptest.NewServer(New(projectDir, buildsDir, user, pass).Handler())
	t.Cleanup(srv.Close)
	return &fixture{server: srv, project: artifacts.NewProject(projectDir), build: build}
}

func (f *fixture) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestApproveThenDelete(t *testing.T) {
	f := newFixture(t, "", "")

	resp := f.post(t, "/api/approve", `{"build":"7","screen":"home.png"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	ok, err := f.project.HasApprovedScreen("home.png")
	require.NoError(t, err)
	assert.True(t, ok)

	resp = f.get(t, "/api/builds/7/screens")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := models.NewScreenList()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(list))
	screen, found := list.FindByName("home.png")
	require.True(t, found)
	assert.True(t, screen.IsApproved())

	resp = f.get(t, "/approved/home.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "pixels", string(body))

	resp = f.post(t, "/api/delete", `{"screen":"home.png"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	ok, err = f.project.HasApprovedScreen("home.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApproveErrors(t *testing.T) {
	f := newFixture(t, "", "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown screen", `{"build":"7","screen":"nope.png"}`, http.StatusNotFound},
		{"unknown build", `{"build":"8","screen":"home.png"}`, http.StatusNotFound},
		{"escaping build id", `{"build":"../7","screen":"home.png"}`, http.StatusBadRequest},
		{"missing screen", `{"build":"7"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.post(t, "/api/approve", tt.body).StatusCode)
		})
	}
}

func TestDeleteAll(t *testing.T) {
	f := newFixture(t, "", "")
	for _, name := range []string{"a.png", "b.png"} {
		require.NoError(t, f.project.ImportApprovedScreen(name, f.build.BuildScreenPath("home.png")))
	}

	resp := f.post(t, "/api/delete-all", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out DeleteAllResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out.Deleted)

	names, err := f.project.ListApprovedScreens()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestBuildImages(t *testing.T) {
	f := newFixture(t, "", "")

	assert.Equal(t, http.StatusOK, f.get(t, "/builds/7/build/home.png").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/builds/7/diff/home.png").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/builds/7/other/home.png").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/builds/8/screens").StatusCode)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, "", "")
	store, err := history.OpenForProject(f.project.Root)
	require.NoError(t, err)
	list := models.NewScreenList(models.NewScreen("a.png"))
	require.NoError(t, store.Record(context.Background(), history.Record{
		BuildID: "7", RecordedAt: time.Now(), Result: models.ResultSuccess, Summary: list.Summary(), Screens: list,
	}))
	require.NoError(t, store.Close())

	resp := f.get(t, "/api/history?limit=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var series []history.Series
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&series))
	require.Len(t, series, 3)
	assert.Equal(t, []string{"7"}, series[0].Labels)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/history?limit=x").StatusCode)
}

func TestBasicAuth(t *testing.T) {
	f := newFixture(t, "admin", "secret")

	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/api/builds/7/screens").StatusCode)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/builds/7/screens", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(t.TempDir(), t.TempDir(), "", "").Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
