package models

import (
	"encoding/json"
	"fmt"
)

// Classification is the outcome of reconciling one screen within a pass.
// New* and Existing* values are exclusive: a screen is either new or existing, never both.
type Classification int

const (
	Unclassified Classification = iota
	NewAutoApproved
	NewUnapproved
	ExistingEqual
	ExistingBelowThreshold
	ExistingAboveThreshold
)

// Snapshot vocabulary, kept compatible with previously stored build data
const (
	NEW_NONE          = "none"
	NEW_AUTO_APPROVED = "autoApproved"
	NEW_UNAPPROVED    = "unApproved"

	EXISTING_NONE                      = "none"
	EXISTING_EQUAL                     = "equal"
	EXISTING_DIFFERENT_ABOVE_THRESHOLD = "aboveThreshold"
	EXISTING_DIFFERENT_BELOW_THRESHOLD = "belowThreshold"
)

func (c Classification) String() string {
	switch c {
	case NewAutoApproved:
		return "new/" + NEW_AUTO_APPROVED
	case NewUnapproved:
		return "new/" + NEW_UNAPPROVED
	case ExistingEqual:
		return "existing/" + EXISTING_EQUAL
	case ExistingBelowThreshold:
		return "existing/" + EXISTING_DIFFERENT_BELOW_THRESHOLD
	case ExistingAboveThreshold:
		return "existing/" + EXISTING_DIFFERENT_ABOVE_THRESHOLD
	default:
		return "unclassified"
	}
}

// IsNew reports whether c is one of the New* values
func (c Classification) IsNew() bool {
	return c == NewAutoApproved || c == NewUnapproved
}

// IsExisting reports whether c is one of the Existing* values
func (c Classification) IsExisting() bool {
	return c == ExistingEqual || c == ExistingBelowThreshold || c == ExistingAboveThreshold
}

// Screen holds the reconciliation state of one named image.
// The classification is assigned at most once; later Mark calls are ignored.
type Screen struct {
	imageName      string
	classification Classification
	approvedImage  bool
	buildImage     bool
	approved       bool
}

// NewScreen creates an unclassified screen
func NewScreen(name string) *Screen {
	return &Screen{imageName: name}
}

func (s *Screen) ImageName() string {
	return s.imageName
}

func (s *Screen) Classification() Classification {
	return s.classification
}

func (s *Screen) classify(c Classification) {
	if s.classification != Unclassified {
		return
	}
	s.classification = c
}

func (s *Screen) MarkNewAutoApproved()                 { s.classify(NewAutoApproved) }
func (s *Screen) MarkNewUnapproved()                   { s.classify(NewUnapproved) }
func (s *Screen) MarkExistingEqual()                   { s.classify(ExistingEqual) }
func (s *Screen) MarkExistingDifferentAboveThreshold() { s.classify(ExistingAboveThreshold) }
func (s *Screen) MarkExistingDifferentBelowThreshold() { s.classify(ExistingBelowThreshold) }

// MarkHasApprovedImage records that an approved image exists without classifying the screen
func (s *Screen) MarkHasApprovedImage() {
	s.approvedImage = true
}

// MarkHasBuildImage records that a build image exists without classifying the screen
func (s *Screen) MarkHasBuildImage() {
	s.buildImage = true
}

// Approve accepts the screen's build image as baseline. Idempotent.
func (s *Screen) Approve() {
	s.approved = true
}

func (s *Screen) IsNew() bool                    { return s.classification.IsNew() }
func (s *Screen) IsNewAutoApproved() bool        { return s.classification == NewAutoApproved }
func (s *Screen) IsNewUnapproved() bool          { return s.classification == NewUnapproved }
func (s *Screen) IsExisting() bool               { return s.classification.IsExisting() }
func (s *Screen) IsExistingEqual() bool          { return s.classification == ExistingEqual }
func (s *Screen) IsExistingAboveThreshold() bool { return s.classification == ExistingAboveThreshold }
func (s *Screen) IsExistingBelowThreshold() bool { return s.classification == ExistingBelowThreshold }
func (s *Screen) IsApproved() bool               { return s.approved }

// HasApprovedImage is implied by any existing classification
func (s *Screen) HasApprovedImage() bool {
	return s.approvedImage || s.IsExisting()
}

// HasBuildImage is implied by any classification
func (s *Screen) HasBuildImage() bool {
	return s.buildImage || s.IsNew() || s.IsExisting()
}

func (s *Screen) HasDifferenceImage() bool {
	return s.IsExistingAboveThreshold() || s.IsExistingBelowThreshold()
}

type screenJSON struct {
	ImageName     string `json:"imageName"`
	New           string `json:"new"`
	Existing      string `json:"existing"`
	ApprovedImage bool   `json:"approvedImage"`
	BuildImage    bool   `json:"buildImage"`
	Approved      bool   `json:"approved"`
}

func (s *Screen) MarshalJSON() ([]byte, error) {
	out := screenJSON{
		ImageName:     s.imageName,
		New:           NEW_NONE,
		Existing:      EXISTING_NONE,
		ApprovedImage: s.approvedImage,
		BuildImage:    s.buildImage,
		Approved:      s.approved,
	}
	switch s.classification {
	case NewAutoApproved:
		out.New = NEW_AUTO_APPROVED
	case NewUnapproved:
		out.New = NEW_UNAPPROVED
	case ExistingEqual:
		out.Existing = EXISTING_EQUAL
	case ExistingBelowThreshold:
		out.Existing = EXISTING_DIFFERENT_BELOW_THRESHOLD
	case ExistingAboveThreshold:
		out.Existing = EXISTING_DIFFERENT_ABOVE_THRESHOLD
	}
	return json.Marshal(out)
}

func (s *Screen) UnmarshalJSON(data []byte) error {
	var in screenJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	classification := Unclassified
	switch in.New {
	case "", NEW_NONE:
	case NEW_AUTO_APPROVED:
		classification = NewAutoApproved
	case NEW_UNAPPROVED:
		classification = NewUnapproved
	default:
		return fmt.Errorf("screen %q: unknown new state %q", in.ImageName, in.New)
	}

	switch in.Existing {
	case "", EXISTING_NONE:
	case EXISTING_EQUAL, EXISTING_DIFFERENT_BELOW_THRESHOLD, EXISTING_DIFFERENT_ABOVE_THRESHOLD:
		if classification != Unclassified {
			return fmt.Errorf("screen %q: cannot be both new (%s) and existing (%s)", in.ImageName, in.New, in.Existing)
		}
		classification = map[string]Classification{
			EXISTING_EQUAL:                     ExistingEqual,
			EXISTING_DIFFERENT_BELOW_THRESHOLD: ExistingBelowThreshold,
			EXISTING_DIFFERENT_ABOVE_THRESHOLD: ExistingAboveThreshold,
		}[in.Existing]
	default:
		return fmt.Errorf("screen %q: unknown existing state %q", in.ImageName, in.Existing)
	}

	*s = Screen{
		imageName:      in.ImageName,
		classification: classification,
		approvedImage:  in.ApprovedImage,
		buildImage:     in.BuildImage,
		approved:       in.Approved,
	}
	return nil
}
