package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func fixtureIncidents() []Incident {
	return []Incident{
		{Date: NewDate(2024, 1, 20), Type: "Near Miss", SeverityLevel: 1},
		{Date: NewDate(2024, 1, 18), Type: "Injury", SeverityLevel: 4},
		{Date: NewDate(2024, 1, 16), Type: "Near Miss", SeverityLevel: 2},
		{Date: NewDate(2024, 1, 15), Type: "Property Damage", SeverityLevel: 5},
		{Date: NewDate(2024, 1, 12), Type: "", SeverityLevel: 2},
	}
}

func fixtureInspections() []Inspection {
	// Ordered date desc like the store returns them.
	return []Inspection{
		{Date: NewDate(2024, 1, 22), Type: "Equipment Check", Score: 70, Inspector: "Jennifer Lee"},
		{Date: NewDate(2024, 1, 10), Type: "Safety Audit", Score: 85, Inspector: "Robert Wilson"},
		{Date: NewDate(2024, 1, 15), Type: "Fire Safety", Score: 92.5, Inspector: "Michael Davis"},
	}
}

func fixtureTrainings() []TrainingSession {
	return []TrainingSession{
		{Date: NewDate(2024, 1, 25), Topic: "Fire Safety", Type: TrainingInternal, Attendees: 10, Conductor: "A"},
		{Date: NewDate(2024, 1, 20), Topic: "First Aid", Type: TrainingExternal, Attendees: 5, Conductor: "B"},
		{Date: NewDate(2024, 1, 5), Topic: "Fire Safety", Type: TrainingInternal, Attendees: 3, Conductor: "C"},
		{Date: NewDate(2024, 1, 2), Topic: "", Type: TrainingInternal, Attendees: 0, Conductor: "D"},
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(fixtureIncidents(), fixtureInspections(), fixtureTrainings())
	want := DashboardSummary{
		TotalIncidents:         5,
		HighSeverityIncidents:  2,
		AverageInspectionScore: 82.5, // (70 + 85 + 92.5) / 3
		TrainingSessions:       4,
		TotalAttendees:         18,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestAverageScore(t *testing.T) {
	assert.Equal(t, 0.0, AverageScore(nil))
	assert.Equal(t, 100.0, AverageScore([]Inspection{{Score: 100}}))
	// 0 + 100 + 33 = 133 / 3 = 44.333 -> 44.3
	assert.Equal(t, 44.3, AverageScore([]Inspection{{Score: 0}, {Score: 100}, {Score: 33}}))
}

func TestBuildCharts(t *testing.T) {
	got := BuildCharts(fixtureIncidents(), fixtureInspections(), fixtureTrainings())
	want := ChartData{
		IncidentsByType: []Count{
			{Label: "Near Miss", Value: 2},
			{Label: "Injury", Value: 1},
			{Label: "Property Damage", Value: 1},
			{Label: "Unknown", Value: 1},
		},
		IncidentsBySeverity: []Count{
			{Label: "Level 1", Value: 1},
			{Label: "Level 2", Value: 2},
			{Label: "Level 4", Value: 1},
			{Label: "Level 5", Value: 1},
		},
		InspectionScores: []ScorePoint{
			{Date: "2024-01-10", Score: 85},
			{Date: "2024-01-15", Score: 92.5},
			{Date: "2024-01-22", Score: 70},
		},
		TrainingAttendance: []Count{
			{Label: "Fire Safety", Value: 13},
			{Label: "First Aid", Value: 5},
			{Label: "Unknown", Value: 0},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("BuildCharts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildChartsEmpty(t *testing.T) {
	got := BuildCharts(nil, nil, nil)
	assert.Empty(t, got.IncidentsByType)
	assert.Empty(t, got.IncidentsBySeverity)
	assert.Empty(t, got.InspectionScores)
	assert.Empty(t, got.TrainingAttendance)
}
