package importer

import (
	"strings"

	"hse/internal/core"
)

// typeColumns hold an explicit record kind when a sheet mixes kinds.
var typeColumns = []string{"record_type", "category", "kind", "type"}

var kindKeywords = []struct {
	kind     core.RecordKind
	keywords []string
}{
	{core.KindIncident, []string{"incident", "accident"}},
	{core.KindInspection, []string{"inspection", "audit"}},
	{core.KindTraining, []string{"training"}},
}

// Classify assigns a row to exactly one record kind. An explicit type column
// wins, then the sheet name, then the fields the row fills in.
func Classify(sheetName string, row Row) core.RecordKind {
	for _, col := range typeColumns {
		if v, ok := row.Lookup(col); ok {
			if kind, ok := matchKind(v); ok {
				return kind
			}
		}
	}

	if kind, ok := matchKind(sheetName); ok {
		return kind
	}

	switch {
	case row.has(fieldSeverity) || row.has(fieldDescription) || row.has(fieldActivity):
		return core.KindIncident
	case row.has(fieldScore) || row.has(fieldInspector):
		return core.KindInspection
	case row.has(fieldTopic) || row.has(fieldAttendees) || row.has(fieldConductor):
		return core.KindTraining
	}
	return core.KindUnclassified
}

func matchKind(s string) (core.RecordKind, bool) {
	s = strings.ToLower(s)
	for _, k := range kindKeywords {
		for _, kw := range k.keywords {
			if strings.Contains(s, kw) {
				return k.kind, true
			}
		}
	}
	return "", false
}
