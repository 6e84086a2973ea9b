package pathbuilder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "pathbuilder")

// PathBuilder expands [VAR] placeholders of a screens pattern over matrix values.
// Only names that have values are placeholders, any other [..] stays a glob character class.
type PathBuilder struct {
	Template  string              // e.g. "shots/[BROWSER]/[VIEWPORT]/*.png"
	Variables map[string][]string // e.g. {"BROWSER": ["chrome","firefox"], "VIEWPORT": ["desktop"]}
}

// PathCombination is one expanded pattern with the values used
type PathCombination struct {
	Path   string
	Values map[string]string
	Key    string // values in template order joined by "/", e.g. "chrome/desktop"
}

var variablePattern = regexp.MustCompile(`\[([A-Za-z_][A-Za-z0-9_]*)\]`)

func NewPathBuilder(template, valuesStr string) (*PathBuilder, error) {
	variables, err := ParseValues(valuesStr)
	if err != nil {
		return nil, err
	}
	return &PathBuilder{Template: template, Variables: variables}, nil
}

// ParseTemplate returns the [VAR] names of template in order of first appearance
func ParseTemplate(template string) []string {
	matches := variablePattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var vars []string
	for _, match := range matches {
		if !seen[match[1]] {
			seen[match[1]] = true
			vars = append(vars, match[1])
		}
	}
	return vars
}

// ParseValues parses "KEY=v1,v2;KEY2=v3" into a map
func ParseValues(valuesStr string) (map[string][]string, error) {
	result := make(map[string][]string)
	for _, token := range strings.Split(valuesStr, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		key, values, ok := strings.Cut(token, "=")
		if !ok {
			return nil, fmt.Errorf("invalid token format: %q, expected KEY=value1,value2", token)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty key in token: %q", token)
		}
		if !variablePattern.MatchString("[" + key + "]") {
			return nil, fmt.Errorf("invalid key %q, expected letters, digits and underscores", key)
		}
		values = strings.TrimSpace(values)
		if values == "" {
			return nil, fmt.Errorf("empty value for key: %q", key)
		}

		parsed := []string{}
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				parsed = append(parsed, v)
			}
		}
		if len(parsed) == 0 {
			return nil, fmt.Errorf("empty value for key: %q", key)
		}
		result[key] = parsed
	}
	return result, nil
}

// placeholders are the template variables that have matrix values
func (pb *PathBuilder) placeholders() []string {
	var vars []string
	for _, name := range ParseTemplate(pb.Template) {
		if _, ok := pb.Variables[name]; ok {
			vars = append(vars, name)
		}
	}
	return vars
}

func (pb *PathBuilder) Validate() error {
	if strings.TrimSpace(pb.Template) == "" {
		return fmt.Errorf("template cannot be empty")
	}
	return nil
}

// InterpolatePath substitutes values into the template
func (pb *PathBuilder) InterpolatePath(values map[string]string) string {
	result := pb.Template
	for name, value := range values {
		result = strings.ReplaceAll(result, "["+name+"]", value)
	}
	return result
}

// GenerateAllPaths returns the cartesian product of the placeholders' values, in template order
func (pb *PathBuilder) GenerateAllPaths() ([]PathCombination, error) {
	if err := pb.Validate(); err != nil {
		return nil, err
	}

	vars := pb.placeholders()
	if len(vars) == 0 {
		return []PathCombination{{Path: pb.Template, Values: map[string]string{}}}, nil
	}

	var results []PathCombination
	for _, combo := range pb.cartesianProduct(vars) {
		results = append(results, PathCombination{
			Path:   pb.InterpolatePath(combo),
			Values: combo,
			Key:    generateKey(vars, combo),
		})
	}
	return results, nil
}

func (pb *PathBuilder) cartesianProduct(varNames []string) []map[string]string {
	var results []map[string]string
	pb.generateCombinations(varNames, 0, make(map[string]string), &results)
	return results
}

func (pb *PathBuilder) generateCombinations(varNames []string, index int, current map[string]string, results *[]map[string]string) {
	if index == len(varNames) {
		combo := make(map[string]string, len(current))
		for k, v := range current {
			combo[k] = v
		}
		*results = append(*results, combo)
		return
	}

	name := varNames[index]
	for _, value := range pb.Variables[name] {
		current[name] = value
		pb.generateCombinations(varNames, index+1, current, results)
	}
	delete(current, name)
}

var screenPrefixReplacer = strings.NewReplacer("/", "-", `\`, "-")

// ScreenPrefix is the screen name prefix of a combination, e.g. "chrome-desktop-" for key "chrome/desktop"
func (c PathCombination) ScreenPrefix() string {
	if c.Key == "" {
		return ""
	}
	return screenPrefixReplacer.Replace(c.Key) + "-"
}

func generateKey(varNames []string, values map[string]string) string {
	parts := make([]string, 0, len(varNames))
	for _, name := range varNames {
		parts = append(parts, values[name])
	}
	return strings.Join(parts, "/")
}

// ExpandComparisons gives unnamed comparisons their positional name, then expands every screensPath over
// the matrix. An expanded comparison is named "<name>/<key>" and prefixes its screen names with the key values.
func ExpandComparisons(comparisons []models.ComparisonConfig, valuesStr string) ([]models.ComparisonConfig, error) {
	variables, err := ParseValues(valuesStr)
	if err != nil {
		return nil, models.NewConfigurationError("matrix", "%v", err)
	}

	used := make(map[string]bool)
	expanded := []models.ComparisonConfig{}
	for i, cfg := range comparisons {
		if cfg.Name == "" {
			cfg.Name = fmt.Sprintf("comparison-%d", i+1)
		}
		pb := &PathBuilder{Template: cfg.ScreensPath, Variables: variables}
		combos, err := pb.GenerateAllPaths()
		if err != nil {
			return nil, models.NewConfigurationError(cfg.Name+".screensPath", "%v", err)
		}
		for _, name := range pb.placeholders() {
			used[name] = true
		}
		for _, combo := range combos {
			c := cfg
			c.ScreensPath = combo.Path
			if combo.Key != "" {
				c.Name = cfg.Name + "/" + combo.Key
				c.ScreenPrefix = combo.ScreenPrefix()
			}
			expanded = append(expanded, c)
		}
	}

	for name := range variables {
		if !used[name] {
			logger.WithField("variable", name).Warn("Matrix variable is not used by any screensPath")
		}
	}
	logger.WithField("comparisons", len(comparisons)).WithField("passes", len(expanded)).Debug("Expanded comparisons")
	return expanded, nil
}
