package history

import "github.com/gh-nvat/vdiffchk/src/pkg/models"

const (
	SERIES_ACTIVITY      = "Active/Inactive"
	SERIES_BUILD_SUMMARY = "Build Summary"
	SERIES_BUILD_DETAILS = "Build Details"
)

// Line is one plotted quantity, one value per build
type Line struct {
	Name   string `json:"name"`
	Values []int  `json:"values"`
}

// Series is a chart over the build history, labelled by build id
type Series struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
	Lines  []Line   `json:"lines"`
}

type lineDef struct {
	name  string
	value func(models.ScreenSummary) int
}

var seriesDefs = []struct {
	name  string
	lines []lineDef
}{
	{
		name: SERIES_ACTIVITY,
		lines: []lineDef{
			{"active", func(s models.ScreenSummary) int { return s.Active }},
			{"inactive", func(s models.ScreenSummary) int { return s.Inactive }},
		},
	},
	{
		name: SERIES_BUILD_SUMMARY,
		lines: []lineDef{
			{"approved", func(s models.ScreenSummary) int { return s.Approved }},
			{"build", func(s models.ScreenSummary) int { return s.Build }},
			{"diff", func(s models.ScreenSummary) int { return s.Difference }},
		},
	},
	{
		name: SERIES_BUILD_DETAILS,
		lines: []lineDef{
			{"known", func(s models.ScreenSummary) int { return s.Existing }},
			{"known =", func(s models.ScreenSummary) int { return s.ExistingEqual }},
			{"known <", func(s models.ScreenSummary) int { return s.ExistingBelowThreshold }},
			{"known >", func(s models.ScreenSummary) int { return s.ExistingAboveThreshold }},
			{"new", func(s models.ScreenSummary) int { return s.New }},
			{"new auto", func(s models.ScreenSummary) int { return s.NewAutoApproved }},
			{"new fail", func(s models.ScreenSummary) int { return s.NewUnapproved }},
		},
	},
}

// Project turns build records, oldest first, into the history charts
func Project(records []Record) []Series {
	labels := make([]string, len(records))
	for i, r := range records {
		labels[i] = r.BuildID
	}

	series := make([]Series, 0, len(seriesDefs))
	for _, def := range seriesDefs {
		s := Series{Name: def.name, Labels: labels, Lines: make([]Line, 0, len(def.lines))}
		for _, l := range def.lines {
			values := make([]int, len(records))
			for i, r := range records {
				values[i] = l.value(r.Summary)
			}
			s.Lines = append(s.Lines, Line{Name: l.name, Values: values})
		}
		series = append(series, s)
	}
	return series
}
