package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gh-nvat/vdiffchk/src/pkg/artifacts"
	"github.com/gh-nvat/vdiffchk/src/pkg/history"
	"github.com/gh-nvat/vdiffchk/src/pkg/reconcile"
)

type ApproveRequest struct {
	Build  string `json:"build"`
	Screen string `json:"screen"`
}

type DeleteRequest struct {
	Screen string `json:"screen"`
}

type DeleteAllResponse struct {
	Deleted int `json:"deleted"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithField("error", err).Warn("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, reconcile.ErrScreenNotFound),
		errors.Is(err, artifacts.ErrSnapshotNotFound),
		errors.Is(err, history.ErrBuildNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		logger.WithField("error", err).Error("Request failed")
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) build(w http.ResponseWriter, id string) (*artifacts.Build, bool) {
	if !artifacts.ValidBuildID(id) {
		http.Error(w, "invalid build id", http.StatusBadRequest)
		return nil, false
	}
	return artifacts.NewBuild(s.BuildsDir, id), true
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Screen == "" {
		http.Error(w, "screen is required", http.StatusBadRequest)
		return
	}
	build, ok := s.build(w, req.Build)
	if !ok {
		return
	}

	err := s.withLock(func(a *reconcile.Actions) error { return a.Approve(req.Screen) }, build)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Screen == "" {
		http.Error(w, "screen is required", http.StatusBadRequest)
		return
	}

	if err := s.withLock(func(a *reconcile.Actions) error { return a.Delete(req.Screen) }, nil); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	var deleted int
	err := s.withLock(func(a *reconcile.Actions) error {
		var err error
		deleted, err = a.DeleteAll()
		return err
	}, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteAllResponse{Deleted: deleted})
}

func (s *Server) handleBuildScreens(w http.ResponseWriter, r *http.Request) {
	build, ok := s.build(w, r.PathValue("id"))
	if !ok {
		return
	}
	list, err := build.LoadSnapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	store, err := history.OpenForProject(s.ProjectDir)
	if err != nil {
		writeError(w, err)
		return
	}
	defer store.Close()

	records, err := store.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history.Project(records))
}

func (s *Server) handleBuildImage(w http.ResponseWriter, r *http.Request) {
	build, ok := s.build(w, r.PathValue("id"))
	if !ok {
		return
	}
	name := r.PathValue("name")
	var path string
	switch r.PathValue("area") {
	case artifacts.BUILD_SCREENS_DIR:
		path = build.BuildScreenPath(name)
	case artifacts.BUILD_DIFFS_DIR:
		path = build.DiffPath(name)
	case artifacts.BUILD_APPROVED_DIR:
		path = build.ApprovedScreenPath(name)
	default:
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleApprovedImage(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.project.ApprovedScreenPath(r.PathValue("name")))
}
