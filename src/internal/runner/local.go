package runner

import (
	"context"

	"github.com/gh-nvat/vdiffchk/src/pkg/template"
)

// RunnerLocal reports to the output directory only
type RunnerLocal struct {
	RunnerBase
}

// make RunnerLocal implement RunnerInterface
var _ RunnerInterface = (*RunnerLocal)(nil)

func NewRunnerLocal(ctx context.Context, options *Options, renderer *template.Renderer) (*RunnerLocal, error) {
	baseRunner, err := NewRunnerBase(ctx, options, renderer)
	if err != nil {
		return nil, err
	}
	runner := &RunnerLocal{
		RunnerBase: *baseRunner,
	}
	runner.Instance = runner
	return runner, nil
}
