package http

import (
	"errors"
	"fmt"
	"html/template"
	"math"

	"hse/internal/core"
	"hse/internal/forms"
	"hse/internal/importer"
	"hse/internal/sqlimport"
)

// Badge variants understood by the stylesheet.
const (
	badgeDefault     = "default"
	badgeSecondary   = "secondary"
	badgeDestructive = "destructive"
)

var templateFuncs = template.FuncMap{
	"severityBadge": severityBadge,
	"scoreBadge":    scoreBadge,
	"trainingBadge": trainingBadge,
	"formatScore":   formatScore,
	"countBars":     countBars,
	"scoreBars":     scoreBars,
	"truncate":      truncate,
	"dict":          dict,
}

func severityBadge(level int) string {
	switch {
	case level >= 4:
		return badgeDestructive
	case level >= 2:
		return badgeDefault
	default:
		return badgeSecondary
	}
}

func scoreBadge(score float64) string {
	switch {
	case score >= 90:
		return badgeDefault
	case score >= 70:
		return badgeSecondary
	default:
		return badgeDestructive
	}
}

func trainingBadge(t core.TrainingType) string {
	if t == core.TrainingInternal {
		return badgeDefault
	}
	return badgeSecondary
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.1f", score)
}

// dict builds a map from key/value pairs so a template can pass several
// values to another template.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict needs key/value pairs")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// barView is one bar of a CSS bar chart. Percent is relative to the
// largest value in the series.
type barView struct {
	Label   string
	Value   string
	Percent int
}

func countBars(counts []core.Count) []barView {
	max := 0
	for _, c := range counts {
		if c.Value > max {
			max = c.Value
		}
	}
	out := make([]barView, 0, len(counts))
	for _, c := range counts {
		out = append(out, barView{
			Label:   c.Label,
			Value:   fmt.Sprintf("%d", c.Value),
			Percent: percentOf(float64(c.Value), float64(max)),
		})
	}
	return out
}

// scoreBars scales against 100, the top of the score range.
func scoreBars(points []core.ScorePoint) []barView {
	out := make([]barView, 0, len(points))
	for _, p := range points {
		out = append(out, barView{
			Label:   p.Date,
			Value:   formatScore(p.Score),
			Percent: percentOf(p.Score, 100),
		})
	}
	return out
}

func percentOf(v, max float64) int {
	if max <= 0 || v <= 0 {
		return 0
	}
	p := int(math.Round(v / max * 100))
	if p > 100 {
		return 100
	}
	return p
}

// Page and partial view models.

type layoutView struct {
	Title  string
	User   string
	Active string
}

type dashboardView struct {
	layoutView
	Summary     core.DashboardSummary
	Incidents   []core.Incident
	Inspections []core.Inspection
	Trainings   []core.TrainingSession
	Charts      core.ChartData
	Error       *errorView

	SQLImportEnabled bool
	MaxUploadMB      int64
}

// formView is one record-entry form with its current values and errors.
type formView struct {
	Values  map[string]string
	Errors  forms.FieldErrors
	Message string
	// Profiles fills the contractor datalist on the incident form.
	Profiles []core.Profile
}

func (f formView) Value(field string) string {
	return f.Values[field]
}

type reportsView struct {
	layoutView
	Tab        string
	Incident   formView
	Inspection formView
	Training   formView
}

type loginView struct {
	layoutView
	Values map[string]string
	Errors forms.FieldErrors
	Error  string
}

type importView struct {
	Report *importer.Report
	Error  string
}

type sqlImportView struct {
	Report     *sqlimport.ExecReport
	Statements int
	Error      string
}

type errorView struct {
	Title   string
	Message string
}
