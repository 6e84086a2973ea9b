package artifacts

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ProjectLock serializes writers of one project baseline across processes
type ProjectLock struct {
	lock *flock.Flock
	path string
}

// NewProjectLock creates the lock for a project; the lock file sits beside the vDiff folder
func NewProjectLock(p *Project) *ProjectLock {
	path := filepath.Join(p.Root, PROJECT_LOCK_FILENAME)
	return &ProjectLock{lock: flock.New(path), path: path}
}

// Lock acquires the lock, waiting for another holder if necessary
func (l *ProjectLock) Lock() error {
	if err := createFolderIfNotExist(filepath.Dir(l.path)); err != nil {
		return err
	}
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if !locked {
		logger.WithField("path", l.path).Warn("Another process holds the project baseline, waiting for it to finish...")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	logger.WithField("path", l.path).Debug("Acquired project lock")
	return nil
}

func (l *ProjectLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}
