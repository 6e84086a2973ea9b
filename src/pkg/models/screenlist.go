package models

import "encoding/json"

// ScreenList is an insertion-ordered, append-only collection of screens.
// It does not deduplicate: callers must not add the same name twice within one pass.
type ScreenList struct {
	screens []*Screen
}

// NewScreenList creates a list holding the given screens in order
func NewScreenList(screens ...*Screen) *ScreenList {
	l := &ScreenList{}
	for _, s := range screens {
		l.Add(s)
	}
	return l
}

func (l *ScreenList) Add(screen *Screen) {
	l.screens = append(l.screens, screen)
}

func (l *ScreenList) AddAll(other *ScreenList) {
	if other == nil {
		return
	}
	l.screens = append(l.screens, other.screens...)
}

func (l *ScreenList) Len() int {
	return len(l.screens)
}

// Screens returns a copy of the underlying ordered slice
func (l *ScreenList) Screens() []*Screen {
	out := make([]*Screen, len(l.screens))
	copy(out, l.screens)
	return out
}

// FindByName returns the first screen with the given image name
func (l *ScreenList) FindByName(name string) (*Screen, bool) {
	for _, s := range l.screens {
		if s.ImageName() == name {
			return s, true
		}
	}
	return nil, false
}

func (l *ScreenList) Contains(name string) bool {
	_, ok := l.FindByName(name)
	return ok
}

func (l *ScreenList) filter(keep func(*Screen) bool) []*Screen {
	out := []*Screen{}
	for _, s := range l.screens {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func (l *ScreenList) ApprovedScreens() []*Screen {
	return l.filter((*Screen).HasApprovedImage)
}

func (l *ScreenList) BuildScreens() []*Screen {
	return l.filter((*Screen).HasBuildImage)
}

func (l *ScreenList) DifferenceScreens() []*Screen {
	return l.filter((*Screen).HasDifferenceImage)
}

// ActiveScreens have both an approved and a build image
func (l *ScreenList) ActiveScreens() []*Screen {
	return l.filter(func(s *Screen) bool { return s.HasApprovedImage() && s.HasBuildImage() })
}

// InactiveScreens have an approved image that the build did not produce
func (l *ScreenList) InactiveScreens() []*Screen {
	return l.filter(func(s *Screen) bool { return s.HasApprovedImage() && !s.HasBuildImage() })
}

func (l *ScreenList) NewScreens() []*Screen {
	return l.filter((*Screen).IsNew)
}

func (l *ScreenList) NewAutoApprovedScreens() []*Screen {
	return l.filter((*Screen).IsNewAutoApproved)
}

func (l *ScreenList) NewUnapprovedScreens() []*Screen {
	return l.filter((*Screen).IsNewUnapproved)
}

func (l *ScreenList) ExistingScreens() []*Screen {
	return l.filter((*Screen).IsExisting)
}

func (l *ScreenList) ExistingEqualScreens() []*Screen {
	return l.filter((*Screen).IsExistingEqual)
}

func (l *ScreenList) ExistingBelowThresholdScreens() []*Screen {
	return l.filter((*Screen).IsExistingBelowThreshold)
}

func (l *ScreenList) ExistingAboveThresholdScreens() []*Screen {
	return l.filter((*Screen).IsExistingAboveThreshold)
}

// ScreenSummary holds the size of every projection of a list
type ScreenSummary struct {
	Total                  int `json:"total"`
	Approved               int `json:"approved"`
	Build                  int `json:"build"`
	Difference             int `json:"difference"`
	Active                 int `json:"active"`
	Inactive               int `json:"inactive"`
	New                    int `json:"new"`
	NewAutoApproved        int `json:"newAutoApproved"`
	NewUnapproved          int `json:"newUnapproved"`
	Existing               int `json:"existing"`
	ExistingEqual          int `json:"existingEqual"`
	ExistingBelowThreshold int `json:"existingBelowThreshold"`
	ExistingAboveThreshold int `json:"existingAboveThreshold"`
}

func (l *ScreenList) Summary() ScreenSummary {
	return ScreenSummary{
		Total:                  l.Len(),
		Approved:               len(l.ApprovedScreens()),
		Build:                  len(l.BuildScreens()),
		Difference:             len(l.DifferenceScreens()),
		Active:                 len(l.ActiveScreens()),
		Inactive:               len(l.InactiveScreens()),
		New:                    len(l.NewScreens()),
		NewAutoApproved:        len(l.NewAutoApprovedScreens()),
		NewUnapproved:          len(l.NewUnapprovedScreens()),
		Existing:               len(l.ExistingScreens()),
		ExistingEqual:          len(l.ExistingEqualScreens()),
		ExistingBelowThreshold: len(l.ExistingBelowThresholdScreens()),
		ExistingAboveThreshold: len(l.ExistingAboveThresholdScreens()),
	}
}

func (l *ScreenList) MarshalJSON() ([]byte, error) {
	if l.screens == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.screens)
}

func (l *ScreenList) UnmarshalJSON(data []byte) error {
	var screens []*Screen
	if err := json.Unmarshal(data, &screens); err != nil {
		return err
	}
	l.screens = screens
	return nil
}
