package reconcile

import (
	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "reconcile")

// ProjectStore is the project baseline: one approved image per screen name
type ProjectStore interface {
	ListApprovedScreens() ([]string, error)
	ApprovedScreenPath(name string) string
	HasApprovedScreen(name string) (bool, error)
	ImportApprovedScreen(name, src string) error
	DeleteApprovedScreen(name string) error
	DeleteAllApprovedScreens() (int, error)
}

// BuildStore is the build working area: build/, diff/ and approved/ screens plus the snapshot
type BuildStore interface {
	ArchiveIncoming(prefix string, sourcePaths []string) ([]string, error)
	RemoveDiff(name string) error
	BuildScreenPath(name string) string
	DiffPath(name string) string
	HasBuildScreen(name string) (bool, error)
	HasApprovedScreen(name string) (bool, error)
	ApprovedScreenPath(name string) string
	ImportApprovedScreen(name, src string) error
	SaveSnapshot(list *models.ScreenList) error
	LoadSnapshot() (*models.ScreenList, error)
}

// Workspace resolves a screen source pattern into files
type Workspace interface {
	Match(pattern string) ([]string, error)
}

// AbortHook is called with the failing pass name on every abort
type AbortHook func(pass string, err error)

// LogAbort is the default abort hook
func LogAbort(pass string, err error) {
	logger.WithField("pass", pass).WithError(err).Error("Reconciliation aborted, no verdict will be produced")
}
