package models

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allActions = []Action{ActionFailed, ActionUnstable, ActionNothing}

func genActions() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, len(allActions)-1)).Map(func(idx []int) []Action {
		out := make([]Action, len(idx))
		for i, v := range idx {
			out[i] = allActions[v]
		}
		return out
	})
}

func apply(actions []Action) Result {
	var b BuildResult
	for _, a := range actions {
		b.Apply(a)
	}
	return b.Result()
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"failed", ActionFailed, false},
		{"Unstable", ActionUnstable, false},
		{"nothing", ActionNothing, false},
		{"", ActionUnstable, false},
		{"abort", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildResultApply(t *testing.T) {
	tests := []struct {
		name    string
		actions []Action
		want    Result
	}{
		{"untouched", nil, ResultSuccess},
		{"nothing", []Action{ActionNothing}, ResultSuccess},
		{"unstable", []Action{ActionUnstable}, ResultUnstable},
		{"unstable after failure", []Action{ActionFailed, ActionUnstable}, ResultFailure},
		{"failure after unstable", []Action{ActionUnstable, ActionFailed}, ResultFailure},
		{"nothing after unstable", []Action{ActionUnstable, ActionNothing}, ResultUnstable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apply(tt.actions))
		})
	}
}

func TestBuildResultProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("result is the worst applied action", prop.ForAll(
		func(actions []Action) bool {
			want := ResultSuccess
			for _, a := range actions {
				switch a {
				case ActionFailed:
					want = ResultFailure
				case ActionUnstable:
					if want == ResultSuccess {
						want = ResultUnstable
					}
				}
			}
			return apply(actions) == want
		},
		genActions(),
	))

	properties.Property("order of application does not matter", prop.ForAll(
		func(actions []Action) bool {
			reversed := make([]Action, len(actions))
			for i, a := range actions {
				reversed[len(actions)-1-i] = a
			}
			return apply(actions) == apply(reversed)
		},
		genActions(),
	))

	properties.Property("applying never improves the result", prop.ForAll(
		func(actions []Action, next int) bool {
			before := apply(actions)
			after := apply(append(actions, allActions[next]))
			return !after.IsBetterThan(before)
		},
		genActions(),
		gen.IntRange(0, len(allActions)-1),
	))

	properties.TestingRun(t)
}

func TestResultText(t *testing.T) {
	data, err := json.Marshal(map[string]Result{"r": ResultUnstable})
	require.NoError(t, err)
	assert.Equal(t, `{"r":"unstable"}`, string(data))

	var r Result
	require.NoError(t, r.UnmarshalText([]byte("failure")))
	assert.Equal(t, ResultFailure, r)
	assert.Error(t, r.UnmarshalText([]byte("broken")))
}

func TestNewBuildResultNeverImproves(t *testing.T) {
	b := NewBuildResult(ResultUnstable)
	b.Apply(ActionNothing)
	assert.Equal(t, ResultUnstable, b.Result())
	b.Apply(ActionFailed)
	assert.Equal(t, ResultFailure, b.Result())
	b.Apply(ActionUnstable)
	assert.Equal(t, ResultFailure, b.Result())
}
