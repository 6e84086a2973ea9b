package artifacts

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/gobwas/glob"
)

const globMetaChars = "*?[{"

// Workspace is the folder the screenshots are produced in
type Workspace struct {
	Root string
}

func NewWorkspace(root string) *Workspace {
	return &Workspace{Root: root}
}

// CompilePattern validates an Ant-style pattern ("shots/**/*.png", "out/{a,b}/*.png").
// "*" does not cross folders, "**" does.
func CompilePattern(pattern string) (glob.Glob, error) {
	pattern = normalizePattern(pattern)
	if pattern == "" {
		return nil, models.NewConfigurationError("screensPath", "pattern must not be empty")
	}
	if path.IsAbs(pattern) {
		return nil, models.NewConfigurationError("screensPath", "pattern %q must be relative to the workspace", pattern)
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, models.NewConfigurationError("screensPath", "invalid pattern %q: %v", pattern, err)
	}
	return g, nil
}

func normalizePattern(pattern string) string {
	pattern = filepath.ToSlash(strings.TrimSpace(pattern))
	return strings.TrimPrefix(pattern, "./")
}

// staticPrefix is the leading folder of a pattern that holds no glob syntax
func staticPrefix(pattern string) string {
	parts := strings.Split(pattern, "/")
	static := []string{}
	for _, part := range parts[:len(parts)-1] {
		if strings.ContainsAny(part, globMetaChars) {
			break
		}
		static = append(static, part)
	}
	return strings.Join(static, "/")
}

// Match returns the absolute paths of the files matching pattern, sorted by relative path
func (w *Workspace) Match(pattern string) ([]string, error) {
	g, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	pattern = normalizePattern(pattern)

	start := filepath.Join(w.Root, filepath.FromSlash(staticPrefix(pattern)))
	if _, err := os.Stat(start); errors.Is(err, os.ErrNotExist) {
		logger.WithField("pattern", pattern).WithField("start", start).Warn("Nothing to match, folder does not exist")
		return []string{}, nil
	}

	rels := []string{}
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(w.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if g.Match(rel) {
			rels = append(rels, rel)
		}
		return nil
	})
	if err != nil {
		return nil, ioError("list", start, err)
	}

	sort.Strings(rels)
	matches := make([]string, len(rels))
	for i, rel := range rels {
		matches[i] = filepath.Join(w.Root, filepath.FromSlash(rel))
	}
	logger.WithField("pattern", pattern).WithField("count", len(matches)).Debug("Matched workspace files")
	return matches, nil
}
