package models

import "time"

// ReportData represents the complete report of one build
type ReportData struct {
	BuildID   string    `json:"buildId"`
	Timestamp time.Time `json:"timestamp"`
	Result    Result    `json:"result"`

	// Passes in the order they ran, after matrix expansion
	Passes []PassReport `json:"passes"`

	// Approved screens that no pass produced
	MissingApproved int  `json:"missingApproved"`
	MissingTripped  bool `json:"missingTripped"`

	Summary ScreenSummary `json:"summary"`
	Screens *ScreenList   `json:"screens"`

	PolicyEvaluation *PolicyEvaluation `json:"policyEvaluation,omitempty"`
}

// PassReport summarizes one reconciliation pass
type PassReport struct {
	Name        string        `json:"name"`
	ScreensPath string        `json:"screensPath"`
	Comparator  string        `json:"comparator"`
	FailedCount int           `json:"failedCount"`
	Threshold   int           `json:"threshold"`
	Tripped     bool          `json:"tripped"`
	MarkAs      Action        `json:"markAs"`
	Summary     ScreenSummary `json:"summary"`
}

// PolicyEvaluation holds the messages produced by the verdict policies
type PolicyEvaluation struct {
	Deny []PolicyMessage `json:"deny"`
	Warn []PolicyMessage `json:"warn"`
}

type PolicyMessage struct {
	Policy  string `json:"policy"`
	Message string `json:"message"`
}

func (p *PolicyEvaluation) IsPassing() bool {
	return p == nil || (len(p.Deny) == 0 && len(p.Warn) == 0)
}

// PullRequest is the PR the github run mode reports to
type PullRequest struct {
	Number  int
	HeadSHA string
}

// Comment is an issue comment on a PR
type Comment struct {
	ID   int64
	Body string
}
