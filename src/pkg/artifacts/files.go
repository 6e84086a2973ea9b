package artifacts

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "artifacts")

const (
	VDIFF_DIR_NAME        = "vDiff"
	BUILD_SCREENS_DIR     = "build"
	BUILD_DIFFS_DIR       = "diff"
	BUILD_APPROVED_DIR    = "approved"
	SNAPSHOT_FILE_NAME    = "data.json"
	PROJECT_LOCK_FILENAME = "vDiff.lock"
)

func ioError(op, path string, err error) error {
	return &models.StoreIOError{Op: op, Path: path, Err: err}
}

func createFolderIfNotExist(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	logger.WithField("path", path).Info("Create folder")
	if err := os.MkdirAll(path, 0755); err != nil {
		return ioError("mkdir", path, err)
	}
	return nil
}

// listFiles returns the sorted names of the regular files in dir.
// A missing dir lists as empty.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, ioError("list", dir, err)
	}

	names := []string{}
	for _, entry := range entries {
		// hidden entries are in-flight copies
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, ioError("stat", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// copyFile copies src to dst through a temp file in dst's folder, so readers never see a partial image
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return ioError("copy", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return ioError("copy", dst, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return ioError("copy", dst, err)
	}
	if err = tmp.Close(); err != nil {
		return ioError("copy", dst, err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return ioError("copy", dst, err)
	}
	return nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ioError("delete", path, err)
	}
	return nil
}

// screenPath joins a screen name onto dir, refusing names that would escape it
func screenPath(dir, name string) string {
	return filepath.Join(dir, filepath.Base(filepath.Clean("/"+name)))
}
