package runner

import (
	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/gh-nvat/vdiffchk/src/pkg/reconcile"
)

type RunnerInterface interface {
	// Initialize loads and validates the step config, builds the passes and the policy gate
	Initialize() error

	// Run every pass against the project baseline and decide the verdict
	Reconcile() (*reconcile.Verdict, error)

	// Main routine to process the runner
	Process() error

	// Handling the export
	Output(data *models.ReportData) error

	// Report of the last processed build, nil before Process succeeded
	Report() *models.ReportData
}
