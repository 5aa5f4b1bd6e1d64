// Package sheets holds the ports and row layout of the spreadsheet mirror:
// one tab per record table, one row per record, the record id first.
package sheets

import (
	"fmt"

	"hse/internal/core"
)

// Tab names in the mirror spreadsheet.
const (
	TabIncidents   = "Incidents"
	TabInspections = "Inspections"
	TabTrainings   = "Training Sessions"
)

var (
	incidentHeader = []any{
		"ID", "Date", "Type", "Activity", "Description", "Severity Level",
		"Contractor", "Place", "Time", "Critical Level", "Incident Name",
	}
	inspectionHeader = []any{"ID", "Date", "Type", "Score", "Inspector"}
	trainingHeader   = []any{"ID", "Date", "Topic", "Type", "No. of Attendees", "Conductor"}
)

// Tab returns the tab that mirrors kind.
func Tab(kind core.RecordKind) (string, error) {
	switch kind {
	case core.KindIncident:
		return TabIncidents, nil
	case core.KindInspection:
		return TabInspections, nil
	case core.KindTraining:
		return TabTrainings, nil
	default:
		return "", fmt.Errorf("no mirror tab for record kind %q", kind)
	}
}

// Header returns the header row written to an empty tab.
func Header(tab string) []any {
	switch tab {
	case TabIncidents:
		return incidentHeader
	case TabInspections:
		return inspectionHeader
	case TabTrainings:
		return trainingHeader
	}
	return nil
}

func IncidentRow(i core.Incident) []any {
	return []any{
		i.ID, i.Date.String(), i.Type, i.Activity, i.Description, i.SeverityLevel,
		i.ContractorLabel(), i.Place, i.Time, i.CriticalLevel, i.IncidentName,
	}
}

func InspectionRow(i core.Inspection) []any {
	return []any{i.ID, i.Date.String(), i.Type, i.Score, i.Inspector}
}

func TrainingRow(t core.TrainingSession) []any {
	return []any{t.ID, t.Date.String(), t.Topic, string(t.Type), t.Attendees, t.Conductor}
}
