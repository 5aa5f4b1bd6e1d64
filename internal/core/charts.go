package core

import (
	"sort"
	"strconv"
	"strings"
)

// UnknownLabel groups rows whose grouping field is blank.
const UnknownLabel = "Unknown"

// Count is a single bar in a grouped chart.
type Count struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// ScorePoint is one inspection on the score-over-time chart.
type ScorePoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// ChartData carries the four dashboard chart series.
type ChartData struct {
	IncidentsByType     []Count      `json:"incidents_by_type"`
	IncidentsBySeverity []Count      `json:"incidents_by_severity"`
	InspectionScores    []ScorePoint `json:"inspection_scores"`
	TrainingAttendance  []Count      `json:"training_attendance"`
}

// BuildCharts groups the fetched tables into chart series.
func BuildCharts(incidents []Incident, inspections []Inspection, trainings []TrainingSession) ChartData {
	return ChartData{
		IncidentsByType:     IncidentsByType(incidents),
		IncidentsBySeverity: IncidentsBySeverity(incidents),
		InspectionScores:    InspectionScores(inspections),
		TrainingAttendance:  TrainingAttendance(trainings),
	}
}

// IncidentsByType counts incidents per type in order of first appearance.
func IncidentsByType(incidents []Incident) []Count {
	g := newGrouper()
	for _, i := range incidents {
		g.add(labelOrUnknown(i.Type), 1)
	}
	return g.counts
}

// IncidentsBySeverity counts incidents per level, labelled "Level N" and
// ordered by level.
func IncidentsBySeverity(incidents []Incident) []Count {
	byLevel := make(map[int]int)
	for _, i := range incidents {
		byLevel[i.SeverityLevel]++
	}
	levels := make([]int, 0, len(byLevel))
	for lvl := range byLevel {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)

	out := make([]Count, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, Count{Label: "Level " + strconv.Itoa(lvl), Value: byLevel[lvl]})
	}
	return out
}

// InspectionScores returns (date, score) points ascending by date.
func InspectionScores(inspections []Inspection) []ScorePoint {
	sorted := make([]Inspection, len(inspections))
	copy(sorted, inspections)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Date.Before(sorted[b].Date.Time)
	})

	out := make([]ScorePoint, 0, len(sorted))
	for _, i := range sorted {
		out = append(out, ScorePoint{Date: i.Date.String(), Score: i.Score})
	}
	return out
}

// TrainingAttendance sums attendees per topic in order of first appearance.
func TrainingAttendance(trainings []TrainingSession) []Count {
	g := newGrouper()
	for _, t := range trainings {
		g.add(labelOrUnknown(t.Topic), t.Attendees)
	}
	return g.counts
}

type grouper struct {
	index  map[string]int
	counts []Count
}

func newGrouper() *grouper {
	return &grouper{index: make(map[string]int), counts: []Count{}}
}

func (g *grouper) add(label string, n int) {
	if idx, ok := g.index[label]; ok {
		g.counts[idx].Value += n
		return
	}
	g.index[label] = len(g.counts)
	g.counts = append(g.counts, Count{Label: label, Value: n})
}

func labelOrUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return UnknownLabel
	}
	return s
}
