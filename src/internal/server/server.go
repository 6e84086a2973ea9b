package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gh-nvat/vdiffchk/src/pkg/artifacts"
	"github.com/gh-nvat/vdiffchk/src/pkg/reconcile"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var logger = log.WithField("package", "server")

const SHUTDOWN_TIMEOUT = 5 * time.Second

// Server exposes the manual actions, build snapshots, history and screen images of one project
type Server struct {
	ProjectDir string
	BuildsDir  string
	Username   string
	Password   string

	project *artifacts.Project
}

func New(projectDir, buildsDir, user, pass string) *Server {
	return &Server{
		ProjectDir: projectDir,
		BuildsDir:  buildsDir,
		Username:   user,
		Password:   pass,
		project:    artifacts.NewProject(projectDir),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API Group
	mux.HandleFunc("POST /api/approve", s.basicAuth(s.handleApprove))
	mux.HandleFunc("POST /api/delete", s.basicAuth(s.handleDelete))
	mux.HandleFunc("POST /api/delete-all", s.basicAuth(s.handleDeleteAll))
	mux.HandleFunc("GET /api/builds/{id}/screens", s.basicAuth(s.handleBuildScreens))
	mux.HandleFunc("GET /api/history", s.basicAuth(s.handleHistory))

	// Images
	mux.HandleFunc("GET /builds/{id}/{area}/{name}", s.basicAuth(s.handleBuildImage))
	mux.HandleFunc("GET /approved/{name}", s.basicAuth(s.handleApprovedImage))

	return mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// withLock runs a manual action while holding the project baseline lock
func (s *Server) withLock(action func(*reconcile.Actions) error, build *artifacts.Build) error {
	lock := artifacts.NewProjectLock(s.project)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.WithField("error", err).Warn("Failed to release project lock")
		}
	}()
	actions := &reconcile.Actions{Project: s.project}
	if build != nil {
		actions.Build = build
	}
	return action(actions)
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
