package template

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/gh-nvat/vdiffchk/src/pkg/format"
	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "template")

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// Renderer renders the markdown build summary used for report.md and PR comments
type Renderer struct {
	funcs template.FuncMap
}

func NewRenderer() *Renderer {
	return &Renderer{
		funcs: template.FuncMap{
			"resultIcon":  resultIcon,
			"passesTable": func(p []models.PassReport) string { return format.Passes(p, format.Markdown) },
			"differences": differences,
		},
	}
}

// RenderWithTemplates renders data with <templatesPath>/summary.md.tmpl when present,
// otherwise with the embedded default template
func (r *Renderer) RenderWithTemplates(templatesPath string, data *models.ReportData) (string, error) {
	text, source, err := r.loadTemplate(templatesPath)
	if err != nil {
		return "", err
	}
	logger.WithField("source", source).Debug("Rendering summary template")

	tmpl, err := template.New(FileNameSummaryTemplate).Funcs(r.funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", source, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", source, err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func (r *Renderer) loadTemplate(templatesPath string) (string, string, error) {
	if templatesPath != "" {
		path := filepath.Join(templatesPath, FileNameSummaryTemplate)
		content, err := os.ReadFile(path)
		if err == nil {
			return string(content), path, nil
		}
		if !os.IsNotExist(err) {
			return "", "", fmt.Errorf("failed to read template %s: %w", path, err)
		}
	}
	content, err := defaultTemplates.ReadFile("templates/" + FileNameSummaryTemplate)
	if err != nil {
		return "", "", fmt.Errorf("failed to read embedded template: %w", err)
	}
	return string(content), "embedded", nil
}

func resultIcon(r models.Result) string {
	switch r {
	case models.ResultFailure:
		return ":x:"
	case models.ResultUnstable:
		return ":warning:"
	default:
		return ":white_check_mark:"
	}
}

// differences lists the screens a reviewer has to look at, above threshold first
func differences(list *models.ScreenList) []*models.Screen {
	if list == nil {
		return nil
	}
	out := append([]*models.Screen{}, list.ExistingAboveThresholdScreens()...)
	out = append(out, list.NewUnapprovedScreens()...)
	out = append(out, list.ExistingBelowThresholdScreens()...)
	return out
}
