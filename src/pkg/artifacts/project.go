package artifacts

import "path/filepath"

// Project is the project-scoped baseline store: one file per approved screen in <root>/vDiff
type Project struct {
	Root string
}

// NewProject creates a project store rooted at dir
func NewProject(dir string) *Project {
	return &Project{Root: dir}
}

func (p *Project) Path() string {
	return filepath.Join(p.Root, VDIFF_DIR_NAME)
}

func (p *Project) EnsureFoldersExist() error {
	return createFolderIfNotExist(p.Path())
}

func (p *Project) ListApprovedScreens() ([]string, error) {
	return listFiles(p.Path())
}

func (p *Project) ApprovedScreenPath(name string) string {
	return screenPath(p.Path(), name)
}

func (p *Project) HasApprovedScreen(name string) (bool, error) {
	return fileExists(p.ApprovedScreenPath(name))
}

// ImportApprovedScreen copies src into the baseline as name
func (p *Project) ImportApprovedScreen(name, src string) error {
	if err := p.EnsureFoldersExist(); err != nil {
		return err
	}
	logger.WithField("screen", name).WithField("src", src).Debug("Import approved screen into project")
	return copyFile(src, p.ApprovedScreenPath(name))
}

func (p *Project) DeleteApprovedScreen(name string) error {
	logger.WithField("screen", name).Info("Delete approved screen")
	return removeFile(p.ApprovedScreenPath(name))
}

// DeleteAllApprovedScreens removes every baseline entry and returns how many were removed
func (p *Project) DeleteAllApprovedScreens() (int, error) {
	names, err := p.ListApprovedScreens()
	if err != nil {
		return 0, err
	}
	for i, name := range names {
		if err := p.DeleteApprovedScreen(name); err != nil {
			return i, err
		}
	}
	return len(names), nil
}
