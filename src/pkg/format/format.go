package format

import (
	"fmt"
	"strings"

	"github.com/gh-nvat/vdiffchk/src/pkg/history"
	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode controls the output format
type Mode int

const (
	ASCII    Mode = iota // terminal tables
	Markdown             // GitHub-flavoured markdown tables
)

// ParseMode accepts "ascii" or "markdown"/"md"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii", "table":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return ASCII, fmt.Errorf("unknown output format %q, expected ascii or markdown", s)
	}
}

func newWriter(m Mode) table.Writer {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return w
}

func render(w table.Writer, m Mode) string {
	if m == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// HistorySeries renders one chart series as a table: one row per build, one column per line
func HistorySeries(s history.Series, m Mode) string {
	w := newWriter(m)
	if m == ASCII {
		w.SetTitle(s.Name)
	}

	header := table.Row{"build"}
	for _, l := range s.Lines {
		header = append(header, l.Name)
	}
	w.AppendHeader(header)

	for i, label := range s.Labels {
		row := table.Row{label}
		for _, l := range s.Lines {
			row = append(row, l.Values[i])
		}
		w.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, 0, len(s.Lines))
	for i := range s.Lines {
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight})
	}
	w.SetColumnConfigs(configs)
	if m == Markdown {
		return "**" + s.Name + "**\n\n" + render(w, m)
	}
	return render(w, m)
}

// History renders every series, separated by a blank line
func History(series []history.Series, m Mode) string {
	parts := make([]string, 0, len(series))
	for _, s := range series {
		parts = append(parts, HistorySeries(s, m))
	}
	return strings.Join(parts, "\n\n")
}

// Passes renders the per-pass outcome of a build
func Passes(passes []models.PassReport, m Mode) string {
	w := newWriter(m)
	w.AppendHeader(table.Row{"pass", "comparator", "screens", "failed", "threshold", "tripped", "mark as"})
	for _, p := range passes {
		w.AppendRow(table.Row{p.Name, p.Comparator, p.Summary.Build, p.FailedCount, p.Threshold, BoolMark(p.Tripped), string(p.MarkAs)})
	}
	return render(w, m)
}

// Screens renders a screen list, one row per screen in list order
func Screens(list *models.ScreenList, m Mode) string {
	w := newWriter(m)
	w.AppendHeader(table.Row{"screen", "classification", "approved", "build", "diff"})
	for _, s := range list.Screens() {
		w.AppendRow(table.Row{
			s.ImageName(),
			s.Classification().String(),
			BoolMark(s.HasApprovedImage()),
			BoolMark(s.HasBuildImage()),
			BoolMark(s.HasDifferenceImage()),
		})
	}
	return render(w, m)
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}
