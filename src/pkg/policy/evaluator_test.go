package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unapprovedPolicy = `package vdiff

deny[msg] {
	input.summary.newUnapproved > 0
	msg := sprintf("%v screens are not approved", [input.summary.newUnapproved])
}

warn[msg] {
	input.missingApproved > 0
	msg := "approved screens are missing from the build"
}
`

const passPolicy = `package vdiff

deny[msg] {
	some i
	pass := input.passes[i]
	pass.tripped
	pass.name == "critical"
	msg := sprintf("critical pass tripped with %v failures", [pass.failedCount])
}
`

func writePolicy(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	return name
}

func report(newUnapproved, missing int, passes ...models.PassReport) *models.ReportData {
	return &models.ReportData{
		BuildID:         "12",
		Result:          models.ResultSuccess,
		Passes:          passes,
		MissingApproved: missing,
		Summary:         models.ScreenSummary{NewUnapproved: newUnapproved},
		Screens:         models.NewScreenList(),
	}
}

func TestEvaluate(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writePolicy(t, dir, "unapproved.rego", unapprovedPolicy),
		writePolicy(t, dir, "passes.rego", passPolicy),
	}
	e := NewPolicyEvaluator(dir, files)
	require.NoError(t, e.LoadAndValidate(context.Background()))

	tests := []struct {
		name     string
		report   *models.ReportData
		wantDeny []models.PolicyMessage
		wantWarn []models.PolicyMessage
		want     models.Result
	}{
		{
			name:     "clean build",
			report:   report(0, 0),
			wantDeny: []models.PolicyMessage{},
			wantWarn: []models.PolicyMessage{},
			want:     models.ResultSuccess,
		},
		{
			name:     "missing screens warn",
			report:   report(0, 3),
			wantDeny: []models.PolicyMessage{},
			wantWarn: []models.PolicyMessage{{Policy: "unapproved", Message: "approved screens are missing from the build"}},
			want:     models.ResultUnstable,
		},
		{
			name:   "unapproved and critical pass deny",
			report: report(2, 0, models.PassReport{Name: "critical", Tripped: true, FailedCount: 4}),
			wantDeny: []models.PolicyMessage{
				{Policy: "unapproved", Message: "2 screens are not approved"},
				{Policy: "passes", Message: "critical pass tripped with 4 failures"},
			},
			wantWarn: []models.PolicyMessage{},
			want:     models.ResultFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(context.Background(), tt.report)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeny, got.Deny)
			assert.Equal(t, tt.wantWarn, got.Warn)

			result := &models.BuildResult{}
			Apply(got, result)
			assert.Equal(t, tt.want, result.Result())
		})
	}
}

func TestLoadAndValidateErrors(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "broken.rego", "package vdiff\n\ndeny[msg] {\n")
	writePolicy(t, dir, "policy.txt", "not rego")
	writePolicy(t, dir, "dup.rego", "package vdiff\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	writePolicy(t, filepath.Join(dir, "nested"), "dup.rego", "package vdiff\n")

	tests := []struct {
		name  string
		files []string
	}{
		{name: "syntax error", files: []string{"broken.rego"}},
		{name: "wrong extension", files: []string{"policy.txt"}},
		{name: "missing file", files: []string{"missing.rego"}},
		{name: "duplicate id", files: []string{"dup.rego", "nested/dup.rego"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPolicyEvaluator(dir, tt.files).LoadAndValidate(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrConfiguration))
		})
	}
}

func TestUndefinedRulesHaveNoMessages(t *testing.T) {
	dir := t.TempDir()
	e := NewPolicyEvaluator(dir, []string{writePolicy(t, dir, "empty.rego", "package vdiff\n\nallow := true\n")})
	require.NoError(t, e.LoadAndValidate(context.Background()))

	got, err := e.Evaluate(context.Background(), report(5, 5))
	require.NoError(t, err)
	assert.True(t, got.IsPassing())
}

func TestApplyNil(t *testing.T) {
	result := &models.BuildResult{}
	Apply(nil, result)
	assert.Equal(t, models.ResultSuccess, result.Result())
}
