package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"hse/internal/core"
)

// Last-resort values for cells that are missing or unreadable.
const (
	DefaultSeverityLabel   = "Medium"
	DefaultIncidentType    = "General"
	DefaultActivity        = "Unspecified"
	DefaultDescription     = "No description provided"
	DefaultInspectionType  = "General"
	DefaultInspector       = "Unknown"
	DefaultTrainingTopic   = "General Safety"
	DefaultTrainingType    = core.TrainingInternal
	DefaultAttendees       = 1
	DefaultConductor       = "Unknown"
	defaultInspectionScore = 0

	// MaxAttendees bounds an imported head count; larger values fall
	// back to DefaultAttendees.
	MaxAttendees = 100000
)

var dateLayouts = []string{
	core.DateLayout,
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2/1/06",
	"02-Jan-2006",
	"2-Jan-06",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseCellDate reads a date cell: an Excel serial number or one of the
// common text layouts. Slash dates are read day first.
func ParseCellDate(v string) (core.Date, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return core.Date{}, false
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		// Plausible serial range (1954..2119); bare years are not dates.
		if serial >= 20000 && serial <= 80000 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return core.NewDate(t.Year(), int(t.Month()), t.Day()), true
			}
		}
		return core.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return core.NewDate(t.Year(), int(t.Month()), t.Day()), true
		}
	}
	return core.Date{}, false
}

// ExtractIncident maps a row onto an incident. The contractor cell is
// returned unresolved; fallback is used when the date cell is unusable.
func ExtractIncident(row Row, fallback core.Date) (core.Incident, string) {
	severity, ok := core.ParseSeverity(row.value(fieldSeverity))
	if !ok {
		severity, _ = core.ParseSeverity(DefaultSeverityLabel)
	}

	return core.Incident{
		Date:          rowDate(row, fallback),
		Type:          orDefault(row.value(fieldIncidentType), DefaultIncidentType),
		Activity:      orDefault(row.value(fieldActivity), DefaultActivity),
		Description:   orDefault(row.value(fieldDescription), DefaultDescription),
		SeverityLevel: severity,
		Place:         row.value(fieldPlace),
		Time:          cellTime(row.value(fieldTime)),
		CriticalLevel: row.value(fieldCriticalLevel),
		IncidentName:  row.value(fieldIncidentName),
	}, row.value(fieldContractor)
}

// ExtractIncidentDetail returns the detail columns of an incident row, if any
// are filled in. IncidentID is left for the caller.
func ExtractIncidentDetail(row Row) (core.IncidentDetail, bool) {
	d := core.IncidentDetail{
		BodyPart:       row.value(fieldBodyPart),
		Mechanism:      row.value(fieldMechanism),
		ImmediateCause: row.value(fieldImmediateCause),
		NatureOfInjury: row.value(fieldNatureOfInjury),
		AgencySource:   row.value(fieldAgencySource),
	}
	ok := d.BodyPart != "" || d.Mechanism != "" || d.ImmediateCause != "" || d.NatureOfInjury != "" || d.AgencySource != ""
	return d, ok
}

func ExtractInspection(row Row, fallback core.Date) core.Inspection {
	score := float64(defaultInspectionScore)
	if v := row.value(fieldScore); v != "" {
		if f, ok := parseNumber(v); ok {
			score = f
		}
	}
	return core.Inspection{
		Date:      rowDate(row, fallback),
		Type:      orDefault(row.value(fieldInspectionType), DefaultInspectionType),
		Score:     score,
		Inspector: orDefault(row.value(fieldInspector), DefaultInspector),
	}
}

func ExtractTraining(row Row, fallback core.Date) core.TrainingSession {
	typ := DefaultTrainingType
	if v := core.TrainingType(strings.ToLower(row.value(fieldTrainingType))); v.Valid() {
		typ = v
	}

	attendees := DefaultAttendees
	if f, ok := parseNumber(row.value(fieldAttendees)); ok && f >= 1 && f <= MaxAttendees {
		attendees = int(math.Round(f))
	}

	return core.TrainingSession{
		Date:      rowDate(row, fallback),
		Topic:     orDefault(row.value(fieldTopic), DefaultTrainingTopic),
		Type:      typ,
		Attendees: attendees,
		Conductor: orDefault(row.value(fieldConductor), DefaultConductor),
	}
}

// cellTime renders an Excel day fraction (0.4375) as 10:30; text passes through.
func cellTime(v string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f >= 1 {
		return v
	}
	minutes := int(math.Round(f * 24 * 60))
	return fmt.Sprintf("%02d:%02d", minutes/60%24, minutes%60)
}

func rowDate(row Row, fallback core.Date) core.Date {
	if d, ok := ParseCellDate(row.value(fieldDate)); ok {
		return d
	}
	return fallback
}

// parseNumber accepts "92.5", "92,5" and "92.5%".
func parseNumber(v string) (float64, bool) {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
