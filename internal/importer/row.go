package importer

import (
	"strings"
	"unicode"
)

// Row is one data row keyed by normalized header.
type Row struct {
	Sheet  string
	Number int // 1-based row number in the sheet
	cells  map[string]string
}

// NewRow pairs header cells with values. Duplicate headers keep the first column.
func NewRow(sheet string, number int, header, values []string) Row {
	r := Row{Sheet: sheet, Number: number, cells: make(map[string]string, len(header))}
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, seen := r.cells[key]; seen {
			continue
		}
		if i < len(values) {
			r.cells[key] = strings.TrimSpace(values[i])
		} else {
			r.cells[key] = ""
		}
	}
	return r
}

// Lookup returns the first non-empty value among the given headers.
func (r Row) Lookup(headers ...string) (string, bool) {
	for _, h := range headers {
		if v := r.cells[normalizeHeader(h)]; v != "" {
			return v, true
		}
	}
	return "", false
}

// value returns a target field, trying its synonyms.
func (r Row) value(f field) string {
	v, _ := r.Lookup(synonyms[f]...)
	return v
}

func (r Row) has(f field) bool {
	_, ok := r.Lookup(synonyms[f]...)
	return ok
}

// normalizeHeader folds case, spacing and punctuation: "No. of Attendees"
// and "no_of_attendees" both become no_of_attendees.
func normalizeHeader(h string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

type field int

const (
	fieldDate field = iota
	fieldIncidentType
	fieldActivity
	fieldDescription
	fieldSeverity
	fieldContractor
	fieldPlace
	fieldTime
	fieldCriticalLevel
	fieldIncidentName
	fieldBodyPart
	fieldMechanism
	fieldImmediateCause
	fieldNatureOfInjury
	fieldAgencySource
	fieldInspectionType
	fieldScore
	fieldInspector
	fieldTopic
	fieldTrainingType
	fieldAttendees
	fieldConductor
)

var synonyms = map[field][]string{
	fieldDate:           {"date", "incident_date", "inspection_date", "training_date", "session_date", "date_of_incident", "reported_on"},
	fieldIncidentType:   {"incident_type", "type", "classification"},
	fieldActivity:       {"activity", "task", "work_activity", "activity_type"},
	fieldDescription:    {"description", "incident_description", "details", "summary", "remarks"},
	fieldSeverity:       {"severity_level", "severity", "risk_level", "level"},
	fieldContractor:     {"contractor", "contractor_id", "contractor_name", "company", "contractor_company"},
	fieldPlace:          {"place", "location", "area", "site"},
	fieldTime:           {"time", "incident_time", "time_of_incident"},
	fieldCriticalLevel:  {"critical_level", "criticality", "critical"},
	fieldIncidentName:   {"incident_name", "name", "title"},
	fieldBodyPart:       {"body_part", "body_part_affected", "body_parts"},
	fieldMechanism:      {"mechanism", "mechanism_of_injury"},
	fieldImmediateCause: {"immediate_cause", "cause", "root_cause"},
	fieldNatureOfInjury: {"nature_of_injury", "injury", "injury_type"},
	fieldAgencySource:   {"agency_source", "agency", "source"},
	fieldInspectionType: {"inspection_type", "type", "audit_type"},
	fieldScore:          {"score", "inspection_score", "rating", "result", "score_percent"},
	fieldInspector:      {"inspector", "inspected_by", "auditor"},
	fieldTopic:          {"topic", "training_topic", "subject", "course", "training"},
	fieldTrainingType:   {"training_type", "type", "delivery"},
	fieldAttendees:      {"no_of_attendees", "attendees", "number_of_attendees", "attendance", "participants"},
	fieldConductor:      {"conductor", "conducted_by", "trainer", "instructor"},
}
