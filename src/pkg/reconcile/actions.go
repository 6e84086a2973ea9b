package reconcile

import (
	"errors"
	"fmt"
)

// ErrScreenNotFound is returned when a manual action names a screen the build did not produce
var ErrScreenNotFound = errors.New("screen not found in build")

// Actions are the manual operations on one build and its project baseline
type Actions struct {
	Project ProjectStore
	Build   BuildStore
}

// Approve accepts the build image of name as the new baseline and records it in the build snapshot
func (a *Actions) Approve(name string) error {
	log := logger.WithField("screen", name)
	log.Info("Approve: starting...")

	ok, err := a.Build.HasBuildScreen(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrScreenNotFound)
	}

	list, err := a.Build.LoadSnapshot()
	if err != nil {
		return err
	}
	screen, found := list.FindByName(name)
	if !found {
		return fmt.Errorf("%s: %w", name, ErrScreenNotFound)
	}

	if err := a.Project.ImportApprovedScreen(name, a.Build.BuildScreenPath(name)); err != nil {
		return err
	}
	screen.Approve()
	if err := a.Build.SaveSnapshot(list); err != nil {
		return err
	}

	log.Info("Approve: done.")
	return nil
}

// Delete removes name from the project baseline
func (a *Actions) Delete(name string) error {
	return a.Project.DeleteApprovedScreen(name)
}

// DeleteAll empties the project baseline and returns how many screens were removed
func (a *Actions) DeleteAll() (int, error) {
	count, err := a.Project.DeleteAllApprovedScreens()
	if err != nil {
		return count, err
	}
	logger.WithField("count", count).Info("Deleted all approved screens")
	return count, nil
}
