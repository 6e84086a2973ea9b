package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
)

// ErrSnapshotNotFound is returned when a build has no stored screen list
var ErrSnapshotNotFound = errors.New("build snapshot not found")

// Expected structure of a build's artifacts:
// - <root>/
// |-- vDiff/
// |   |-- build/      screens archived from the workspace
// |   |-- diff/       comparator diff images
// |   |-- approved/   baseline copies the build was compared against
// |   |-- data.json   screen list snapshot

// ApprovedSource is anything that can seed a build's approved folder
type ApprovedSource interface {
	ListApprovedScreens() ([]string, error)
	ApprovedScreenPath(name string) string
}

// Build is the build-scoped working area
type Build struct {
	ID   string
	Root string
}

// ValidBuildID reports whether id names a single folder under the builds dir
func ValidBuildID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

// NewBuild creates a build store for build id under buildsDir
func NewBuild(buildsDir, id string) *Build {
	return &Build{ID: id, Root: filepath.Join(buildsDir, id)}
}

func (b *Build) Path() string                { return filepath.Join(b.Root, VDIFF_DIR_NAME) }
func (b *Build) BuildScreensPath() string    { return filepath.Join(b.Path(), BUILD_SCREENS_DIR) }
func (b *Build) BuildDiffsPath() string      { return filepath.Join(b.Path(), BUILD_DIFFS_DIR) }
func (b *Build) ApprovedScreensPath() string { return filepath.Join(b.Path(), BUILD_APPROVED_DIR) }
func (b *Build) SnapshotPath() string        { return filepath.Join(b.Path(), SNAPSHOT_FILE_NAME) }

func (b *Build) EnsureFoldersExist() error {
	for _, dir := range []string{b.Path(), b.BuildScreensPath(), b.BuildDiffsPath(), b.ApprovedScreensPath()} {
		if err := createFolderIfNotExist(dir); err != nil {
			return err
		}
	}
	return nil
}

func (b *Build) ListBuildScreens() ([]string, error)    { return listFiles(b.BuildScreensPath()) }
func (b *Build) ListBuildDiffs() ([]string, error)      { return listFiles(b.BuildDiffsPath()) }
func (b *Build) ListApprovedScreens() ([]string, error) { return listFiles(b.ApprovedScreensPath()) }

func (b *Build) BuildScreenPath(name string) string { return screenPath(b.BuildScreensPath(), name) }
func (b *Build) DiffPath(name string) string        { return screenPath(b.BuildDiffsPath(), name) }
func (b *Build) ApprovedScreenPath(name string) string {
	return screenPath(b.ApprovedScreensPath(), name)
}

func (b *Build) HasBuildScreen(name string) (bool, error) { return fileExists(b.BuildScreenPath(name)) }
func (b *Build) HasDiff(name string) (bool, error)        { return fileExists(b.DiffPath(name)) }
func (b *Build) HasApprovedScreen(name string) (bool, error) {
	return fileExists(b.ApprovedScreenPath(name))
}

// ScreenName is the build-wide name a workspace file is archived under: prefix plus its file name
func ScreenName(prefix, sourcePath string) string {
	return prefix + filepath.Base(sourcePath)
}

// ArchiveIncoming copies workspace screenshots into the build screens folder, flattened by ScreenName.
// Returns the archived screen names in input order.
func (b *Build) ArchiveIncoming(prefix string, sourcePaths []string) ([]string, error) {
	dst := b.BuildScreensPath()
	if err := createFolderIfNotExist(dst); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(sourcePaths))
	seen := make(map[string]string, len(sourcePaths))
	for _, src := range sourcePaths {
		name := ScreenName(prefix, src)
		if prev, ok := seen[name]; ok {
			logger.WithField("screen", name).WithField("previous", prev).WithField("src", src).
				Warn("Screen name archived twice, the later file wins")
		} else {
			names = append(names, name)
		}
		seen[name] = src
		if err := copyFile(src, b.BuildScreenPath(name)); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// DuplicateApprovedFromProject seeds the build's approved folder with the project baseline
func (b *Build) DuplicateApprovedFromProject(project ApprovedSource) error {
	if err := createFolderIfNotExist(b.ApprovedScreensPath()); err != nil {
		return err
	}
	names, err := project.ListApprovedScreens()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := copyFile(project.ApprovedScreenPath(name), b.ApprovedScreenPath(name)); err != nil {
			return err
		}
	}
	logger.WithField("count", len(names)).WithField("build", b.ID).Info("Duplicated approved screens into build")
	return nil
}

// ImportApprovedScreen copies src into the build's approved folder as name
func (b *Build) ImportApprovedScreen(name, src string) error {
	if err := createFolderIfNotExist(b.ApprovedScreensPath()); err != nil {
		return err
	}
	return copyFile(src, b.ApprovedScreenPath(name))
}

// RemoveDiff deletes the diff artifact for name left by an earlier run, if any
func (b *Build) RemoveDiff(name string) error {
	return removeFile(b.DiffPath(name))
}

// SaveSnapshot stores the build's screen list as JSON
func (b *Build) SaveSnapshot(list *models.ScreenList) error {
	if err := createFolderIfNotExist(b.Path()); err != nil {
		return err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := b.SnapshotPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return ioError("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ioError("write", path, err)
	}
	logger.WithField("path", path).WithField("screens", list.Len()).Info("Written build snapshot")
	return nil
}

// LoadSnapshot reads the build's screen list
func (b *Build) LoadSnapshot() (*models.ScreenList, error) {
	path := b.SnapshotPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("build %s: %w", b.ID, ErrSnapshotNotFound)
		}
		return nil, ioError("read", path, err)
	}

	list := models.NewScreenList()
	if err := json.Unmarshal(data, list); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return list, nil
}
