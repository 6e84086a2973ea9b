package pathbuilder

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{
			name:     "single variable",
			template: "shots/[BROWSER]/*.png",
			want:     []string{"BROWSER"},
		},
		{
			name:     "multiple variables",
			template: "shots/[BROWSER]/[VIEWPORT]/**.png",
			want:     []string{"BROWSER", "VIEWPORT"},
		},
		{
			name:     "no variables",
			template: "shots/*.png",
			want:     nil,
		},
		{
			name:     "duplicate variables",
			template: "[BROWSER]/[BROWSER]-*.png",
			want:     []string{"BROWSER"},
		},
		{
			name:     "variable with underscores",
			template: "shots/[DEVICE_NAME]/*.png",
			want:     []string{"DEVICE_NAME"},
		},
		{
			name:     "character classes with symbols are not variables",
			template: "shots/[a-c]*.png",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTemplate(tt.template)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTemplate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseValues(t *testing.T) {
	tests := []struct {
		name      string
		valuesStr string
		want      map[string][]string
		wantErr   bool
	}{
		{
			name:      "single key single value",
			valuesStr: "BROWSER=chrome",
			want:      map[string][]string{"BROWSER": {"chrome"}},
		},
		{
			name:      "single key multiple values",
			valuesStr: "BROWSER=chrome,firefox",
			want:      map[string][]string{"BROWSER": {"chrome", "firefox"}},
		},
		{
			name:      "multiple keys",
			valuesStr: "BROWSER=chrome,firefox;VIEWPORT=desktop,mobile",
			want: map[string][]string{
				"BROWSER":  {"chrome", "firefox"},
				"VIEWPORT": {"desktop", "mobile"},
			},
		},
		{
			name:      "empty string",
			valuesStr: "",
			want:      map[string][]string{},
		},
		{
			name:      "with spaces and trailing separators",
			valuesStr: " BROWSER = chrome , firefox, ; ",
			want:      map[string][]string{"BROWSER": {"chrome", "firefox"}},
		},
		{
			name:      "invalid format no equals",
			valuesStr: "BROWSER",
			wantErr:   true,
		},
		{
			name:      "empty key",
			valuesStr: "=chrome",
			wantErr:   true,
		},
		{
			name:      "invalid key",
			valuesStr: "MY-BROWSER=chrome",
			wantErr:   true,
		},
		{
			name:      "empty value",
			valuesStr: "BROWSER=",
			wantErr:   true,
		},
		{
			name:      "only commas",
			valuesStr: "BROWSER=,,",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValues(tt.valuesStr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseValues() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseValues() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPathBuilder_GenerateAllPaths(t *testing.T) {
	tests := []struct {
		name    string
		pb      *PathBuilder
		want    []PathCombination
		wantErr bool
	}{
		{
			name: "single variable multiple values",
			pb: &PathBuilder{
				Template:  "shots/[BROWSER]/*.png",
				Variables: map[string][]string{"BROWSER": {"chrome", "firefox"}},
			},
			want: []PathCombination{
				{Path: "shots/chrome/*.png", Values: map[string]string{"BROWSER": "chrome"}, Key: "chrome"},
				{Path: "shots/firefox/*.png", Values: map[string]string{"BROWSER": "firefox"}, Key: "firefox"},
			},
		},
		{
			name: "cartesian product in template order",
			pb: &PathBuilder{
				Template: "[VIEWPORT]/[BROWSER]/*.png",
				Variables: map[string][]string{
					"BROWSER":  {"chrome", "firefox"},
					"VIEWPORT": {"desktop", "mobile"},
				},
			},
			want: []PathCombination{
				{Path: "desktop/chrome/*.png", Values: map[string]string{"BROWSER": "chrome", "VIEWPORT": "desktop"}, Key: "desktop/chrome"},
				{Path: "desktop/firefox/*.png", Values: map[string]string{"BROWSER": "firefox", "VIEWPORT": "desktop"}, Key: "desktop/firefox"},
				{Path: "mobile/chrome/*.png", Values: map[string]string{"BROWSER": "chrome", "VIEWPORT": "mobile"}, Key: "mobile/chrome"},
				{Path: "mobile/firefox/*.png", Values: map[string]string{"BROWSER": "firefox", "VIEWPORT": "mobile"}, Key: "mobile/firefox"},
			},
		},
		{
			name: "undefined names stay glob classes",
			pb: &PathBuilder{
				Template:  "shots/[BROWSER]/[AB]*.png",
				Variables: map[string][]string{"BROWSER": {"chrome"}},
			},
			want: []PathCombination{
				{Path: "shots/chrome/[AB]*.png", Values: map[string]string{"BROWSER": "chrome"}, Key: "chrome"},
			},
		},
		{
			name: "no variables",
			pb: &PathBuilder{
				Template:  "shots/*.png",
				Variables: map[string][]string{},
			},
			want: []PathCombination{
				{Path: "shots/*.png", Values: map[string]string{}},
			},
		},
		{
			name:    "empty template",
			pb:      &PathBuilder{Template: " "},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pb.GenerateAllPaths()
			if (err != nil) != tt.wantErr {
				t.Errorf("GenerateAllPaths() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GenerateAllPaths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewPathBuilder(t *testing.T) {
	pb, err := NewPathBuilder("shots/[BROWSER]/*.png", "BROWSER=chrome")
	if err != nil {
		t.Fatalf("NewPathBuilder() error = %v", err)
	}
	if got := pb.InterpolatePath(map[string]string{"BROWSER": "chrome"}); got != "shots/chrome/*.png" {
		t.Errorf("InterpolatePath() = %v", got)
	}

	if _, err := NewPathBuilder("shots/*.png", "INVALID"); err == nil {
		t.Error("NewPathBuilder() expected error for invalid values")
	}
}

func TestExpandComparisons(t *testing.T) {
	comparisons := []models.ComparisonConfig{
		{Name: "desktop", ScreensPath: "shots/[BROWSER]/*.png", AutoApprove: true},
		{ScreensPath: "static/*.png", Type: "checksum"},
	}

	got, err := ExpandComparisons(comparisons, "BROWSER=chrome,firefox;UNUSED=x")
	if err != nil {
		t.Fatalf("ExpandComparisons() error = %v", err)
	}
	want := []models.ComparisonConfig{
		{Name: "desktop/chrome", ScreensPath: "shots/chrome/*.png", AutoApprove: true, ScreenPrefix: "chrome-"},
		{Name: "desktop/firefox", ScreensPath: "shots/firefox/*.png", AutoApprove: true, ScreenPrefix: "firefox-"},
		{Name: "comparison-2", ScreensPath: "static/*.png", Type: "checksum"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandComparisons() = %+v, want %+v", got, want)
	}
	if comparisons[1].Name != "" {
		t.Error("ExpandComparisons() must not modify its input")
	}

	_, err = ExpandComparisons(comparisons, "BROWSER")
	if !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("ExpandComparisons() error = %v, want configuration error", err)
	}
}

func TestPathCombinationScreenPrefix(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "", want: ""},
		{key: "chrome", want: "chrome-"},
		{key: "chrome/desktop", want: "chrome-desktop-"},
		{key: `a\b/c`, want: "a-b-c-"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := (PathCombination{Key: tt.key}).ScreenPrefix(); got != tt.want {
				t.Errorf("ScreenPrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}
