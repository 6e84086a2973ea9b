package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/open-policy-agent/opa/rego"

	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "policy")

const (
	POLICY_PACKAGE = "vdiff"
	DENY_QUERY     = "data." + POLICY_PACKAGE + ".deny"
	WARN_QUERY     = "data." + POLICY_PACKAGE + ".warn"
)

type PolicyEvaluatorInterface interface {
	LoadAndValidate(ctx context.Context) error
	Evaluate(ctx context.Context, report *models.ReportData) (*models.PolicyEvaluation, error)
}

type preparedPolicy struct {
	id   string
	path string
	deny rego.PreparedEvalQuery
	warn rego.PreparedEvalQuery
}

// PolicyEvaluator gates the verdict with rego policies in package vdiff.
// Every message of a deny rule fails the build, every message of a warn rule makes it unstable.
type PolicyEvaluator struct {
	baseDir  string
	files    []string
	policies []preparedPolicy
}

var _ PolicyEvaluatorInterface = (*PolicyEvaluator)(nil)

// NewPolicyEvaluator creates an evaluator for files, relative paths resolve against baseDir
func NewPolicyEvaluator(baseDir string, files []string) *PolicyEvaluator {
	return &PolicyEvaluator{baseDir: baseDir, files: files}
}

// LoadAndValidate compiles every policy. All problems are configuration errors.
func (e *PolicyEvaluator) LoadAndValidate(ctx context.Context) error {
	logger.Info("LoadAndValidate: starting...")

	seen := make(map[string]string)
	for _, file := range e.files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(e.baseDir, path)
		}
		if !strings.HasSuffix(path, ".rego") {
			return models.NewConfigurationError("policies", "%s: unsupported file extension (must be .rego)", file)
		}
		if _, err := os.Stat(path); err != nil {
			return models.NewConfigurationError("policies", "%s: file not found: %v", file, err)
		}

		id := strings.TrimSuffix(filepath.Base(path), ".rego")
		if prev, ok := seen[id]; ok {
			return models.NewConfigurationError("policies", "%s: policy id %q already used by %s", file, id, prev)
		}
		seen[id] = file

		p := preparedPolicy{id: id, path: path}
		var err error
		if p.deny, err = prepare(ctx, DENY_QUERY, path); err != nil {
			return models.NewConfigurationError("policies", "%s: %v", file, err)
		}
		if p.warn, err = prepare(ctx, WARN_QUERY, path); err != nil {
			return models.NewConfigurationError("policies", "%s: %v", file, err)
		}
		e.policies = append(e.policies, p)
		logger.WithField("policy", id).WithField("path", path).Debug("Loaded policy")
	}

	logger.Infof("LoadAndValidate: done, loaded %d policies.", len(e.policies))
	return nil
}

func prepare(ctx context.Context, query, path string) (rego.PreparedEvalQuery, error) {
	return rego.New(
		rego.Query(query),
		rego.Load([]string{path}, nil),
	).PrepareForEval(ctx)
}

// Evaluate runs every policy against the report of a build
func (e *PolicyEvaluator) Evaluate(ctx context.Context, report *models.ReportData) (*models.PolicyEvaluation, error) {
	logger.Info("Evaluate: starting...")
	input, err := toInput(report)
	if err != nil {
		return nil, err
	}

	result := &models.PolicyEvaluation{Deny: []models.PolicyMessage{}, Warn: []models.PolicyMessage{}}
	for _, p := range e.policies {
		deny, err := evalMessages(ctx, p.deny, input)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate policy %s: %w", p.id, err)
		}
		warn, err := evalMessages(ctx, p.warn, input)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate policy %s: %w", p.id, err)
		}
		logger.WithField("policy", p.id).WithField("deny", deny).WithField("warn", warn).Debug("Evaluated policy")

		for _, msg := range deny {
			result.Deny = append(result.Deny, models.PolicyMessage{Policy: p.id, Message: msg})
		}
		for _, msg := range warn {
			result.Warn = append(result.Warn, models.PolicyMessage{Policy: p.id, Message: msg})
		}
	}

	logger.WithField("deny", len(result.Deny)).WithField("warn", len(result.Warn)).Info("Evaluate: done.")
	return result, nil
}

// Apply worsens result by the evaluation's messages
func Apply(evaluation *models.PolicyEvaluation, result *models.BuildResult) {
	if evaluation == nil {
		return
	}
	if len(evaluation.Warn) > 0 {
		result.Apply(models.ActionUnstable)
	}
	if len(evaluation.Deny) > 0 {
		result.Apply(models.ActionFailed)
	}
}

// toInput converts the report to plain JSON values, without a previous evaluation
func toInput(report *models.ReportData) (interface{}, error) {
	clone := *report
	clone.PolicyEvaluation = nil
	data, err := json.Marshal(&clone)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy input: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to decode policy input: %w", err)
	}
	return input, nil
}

// evalMessages collects the messages of a set or array rule, an undefined rule has none
func evalMessages(ctx context.Context, query rego.PreparedEvalQuery, input interface{}) ([]string, error) {
	rs, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, err
	}

	msgs := []string{}
	for _, r := range rs {
		for _, expr := range r.Expressions {
			switch v := expr.Value.(type) {
			case []interface{}:
				for _, item := range v {
					msgs = append(msgs, formatMessage(item))
				}
			case map[string]interface{}:
				// object rules: keys are the messages
				for key := range v {
					msgs = append(msgs, key)
				}
			case nil:
			default:
				msgs = append(msgs, formatMessage(v))
			}
		}
	}
	sort.Strings(msgs)
	return msgs, nil
}

func formatMessage(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if m, ok := v.(map[string]interface{}); ok {
		if msg, ok := m["msg"].(string); ok {
			return msg
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
