package core

import "math"

// DashboardSummary holds the figures shown on the dashboard cards.
type DashboardSummary struct {
	TotalIncidents         int
	HighSeverityIncidents  int
	AverageInspectionScore float64 // rounded to one decimal
	TrainingSessions       int
	TotalAttendees         int
}

// Summarize computes the dashboard cards from the three record tables.
func Summarize(incidents []Incident, inspections []Inspection, trainings []TrainingSession) DashboardSummary {
	s := DashboardSummary{
		TotalIncidents:   len(incidents),
		TrainingSessions: len(trainings),
	}
	for _, i := range incidents {
		if i.SeverityLevel >= HighSeverity {
			s.HighSeverityIncidents++
		}
	}
	s.AverageInspectionScore = AverageScore(inspections)
	for _, t := range trainings {
		s.TotalAttendees += t.Attendees
	}
	return s
}

// AverageScore returns the mean inspection score rounded to one decimal,
// or 0 when there are no inspections.
func AverageScore(inspections []Inspection) float64 {
	if len(inspections) == 0 {
		return 0
	}
	var sum float64
	for _, i := range inspections {
		sum += i.Score
	}
	return math.Round(sum/float64(len(inspections))*10) / 10
}
