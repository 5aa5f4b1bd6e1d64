package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hse/internal/core"
)

var fallback = core.NewDate(2024, 6, 30)

func TestExtractIncidentDefaults(t *testing.T) {
	incident, contractor := ExtractIncident(row([]string{"Notes"}, "x"), fallback)

	assert.Equal(t, core.Incident{
		Date:          fallback,
		Type:          DefaultIncidentType,
		Activity:      DefaultActivity,
		Description:   DefaultDescription,
		SeverityLevel: 2,
	}, incident)
	assert.Empty(t, contractor)
}

func TestExtractIncidentSynonymsAndCase(t *testing.T) {
	header := []string{"Incident Date", "TYPE", "Task", "Details", "Severity", "Company", "Location", "Time", "Body Part"}
	r := row(header, "45294", "First Aid Case", "Hand / Power Tools use", "Finger injury during tool operation", "High", "Trojan General Contracting", "Workshop", "0.4375", "Finger")

	incident, contractor := ExtractIncident(r, fallback)
	assert.Equal(t, "2024-01-03", incident.Date.String())
	assert.Equal(t, "First Aid Case", incident.Type)
	assert.Equal(t, "Hand / Power Tools use", incident.Activity)
	assert.Equal(t, "Finger injury during tool operation", incident.Description)
	assert.Equal(t, 3, incident.SeverityLevel)
	assert.Equal(t, "Workshop", incident.Place)
	assert.Equal(t, "10:30", incident.Time)
	assert.Equal(t, "Trojan General Contracting", contractor)

	detail, ok := ExtractIncidentDetail(r)
	assert.True(t, ok)
	assert.Equal(t, "Finger", detail.BodyPart)
}

func TestExtractIncidentSeverity(t *testing.T) {
	tests := []struct {
		cell string
		want int
	}{
		{"", 2},
		{"Medium", 2},
		{"low", 1},
		{"5", 5},
		{"Level 4", 4},
		{"9", 2},
		{"unknown", 2},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			incident, _ := ExtractIncident(row([]string{"severity_level"}, tt.cell), fallback)
			assert.Equal(t, tt.want, incident.SeverityLevel)
		})
	}
}

func TestExtractInspection(t *testing.T) {
	inspection := ExtractInspection(row([]string{"Date", "Rating", "Audit Type", "Auditor"}, "15/02/2025", "92,3%", "Monthly Audit", "External Auditor"), fallback)
	assert.Equal(t, core.Inspection{
		Date:      core.NewDate(2025, 2, 15),
		Type:      "Monthly Audit",
		Score:     92.3,
		Inspector: "External Auditor",
	}, inspection)

	empty := ExtractInspection(row([]string{"Score"}, "n/a"), fallback)
	assert.Equal(t, 0.0, empty.Score)
	assert.Equal(t, DefaultInspectionType, empty.Type)
	assert.Equal(t, DefaultInspector, empty.Inspector)
	assert.Equal(t, fallback, empty.Date)
}

func TestExtractTraining(t *testing.T) {
	training := ExtractTraining(row([]string{"Date", "Course", "Training Type", "Participants", "Trainer"}, "2025-02-01", "Emergency Response Procedures", "External", "40", "Fire Safety Consultant"), fallback)
	assert.Equal(t, core.TrainingSession{
		Date:      core.NewDate(2025, 2, 1),
		Topic:     "Emergency Response Procedures",
		Type:      core.TrainingExternal,
		Attendees: 40,
		Conductor: "Fire Safety Consultant",
	}, training)

	defaults := ExtractTraining(row([]string{"Type", "Attendees"}, "webinar", "0"), fallback)
	assert.Equal(t, DefaultTrainingTopic, defaults.Topic)
	assert.Equal(t, core.TrainingInternal, defaults.Type)
	assert.Equal(t, DefaultAttendees, defaults.Attendees)
	assert.Equal(t, DefaultConductor, defaults.Conductor)

	for _, v := range []string{"1e300", "9223372036854775808", "100000.5"} {
		got := ExtractTraining(row([]string{"Attendees"}, v), fallback)
		assert.Equal(t, DefaultAttendees, got.Attendees, v)
	}
	assert.Equal(t, MaxAttendees, ExtractTraining(row([]string{"Attendees"}, "100000"), fallback).Attendees)
}

func TestParseCellDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-01-03", "2025-01-03", true},
		{"45294", "2024-01-03", true},
		{"45294.5", "2024-01-03", true},
		{"03/01/2025", "2025-01-03", true},
		{"3-Jan-25", "2025-01-03", true},
		{"January 3, 2025", "2025-01-03", true},
		{"2024", "", false},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := ParseCellDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, d.String())
		})
	}
}
