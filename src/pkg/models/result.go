package models

import (
	"fmt"
	"strings"
)

// Action is what a tripped threshold does to the build result
type Action string

const (
	ActionFailed   Action = "failed"
	ActionUnstable Action = "unstable"
	ActionNothing  Action = "nothing"
)

// ParseAction parses a markAs value. An empty value means unstable.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case "", ActionUnstable:
		return ActionUnstable, nil
	case ActionFailed:
		return ActionFailed, nil
	case ActionNothing:
		return ActionNothing, nil
	default:
		return "", fmt.Errorf("unknown action %q, expected one of: failed, unstable, nothing", s)
	}
}

// Result is the build verdict, ordered from best to worst
type Result int

const (
	ResultSuccess Result = iota
	ResultUnstable
	ResultFailure
)

func (r Result) String() string {
	switch r {
	case ResultUnstable:
		return "unstable"
	case ResultFailure:
		return "failure"
	default:
		return "success"
	}
}

func (r Result) IsBetterThan(other Result) bool {
	return r < other
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(text []byte) error {
	switch string(text) {
	case "success":
		*r = ResultSuccess
	case "unstable":
		*r = ResultUnstable
	case "failure":
		*r = ResultFailure
	default:
		return fmt.Errorf("unknown result %q", string(text))
	}
	return nil
}

// BuildResult is the single result value of one build. It only ever gets worse.
type BuildResult struct {
	result Result
}

// NewBuildResult starts from a result already decided, e.g. a verdict handed to the policy gate
func NewBuildResult(r Result) *BuildResult {
	return &BuildResult{result: r}
}

func (b *BuildResult) Result() Result {
	return b.result
}

// Apply merges an action into the result without ever downgrading a worse result
func (b *BuildResult) Apply(action Action) {
	switch action {
	case ActionFailed:
		b.result = ResultFailure
	case ActionUnstable:
		if b.result.IsBetterThan(ResultUnstable) {
			b.result = ResultUnstable
		}
	}
}
