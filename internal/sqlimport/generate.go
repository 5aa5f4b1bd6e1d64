package sqlimport

import (
	"strconv"
	"strings"

	"hse/internal/storage"
)

// GenerateSQL renders the dataset as INSERT statements for the dialect,
// one per line, grouped under comment headers.
func GenerateSQL(dialect storage.Dialect, data *SampleData) string {
	var b strings.Builder
	b.WriteString("-- HSE Statistics Data Import\n\n")

	profiles := dialect.Table("profiles")

	b.WriteString("-- Insert contractor profiles\n")
	for _, c := range data.Contractors {
		b.WriteString("INSERT INTO " + profiles + " (id, user_id, username, role, company) VALUES (" +
			dialect.UUIDExpr() + ", " + dialect.UUIDExpr() + ", " +
			quote(c.Username) + ", " + quote(c.Role) + ", " + quote(c.Company) + ");\n")
	}

	b.WriteString("\n-- Insert incidents\n")
	for _, i := range data.Incidents {
		contractor := "(SELECT id FROM " + profiles + " WHERE company = " + quote(i.Contractor) + " LIMIT 1)"
		b.WriteString("INSERT INTO " + dialect.Table("incidents") +
			" (date, contractor_id, activity, description, severity_level, type) VALUES (" +
			quote(i.Date) + ", " + contractor + ", " + quote(i.Activity) + ", " + quote(i.Description) + ", " +
			strconv.Itoa(i.SeverityLevel) + ", " + quote(i.Type) + ");\n")
	}

	b.WriteString("\n-- Insert inspections\n")
	for _, i := range data.Inspections {
		b.WriteString("INSERT INTO " + dialect.Table("inspections") + " (date, score, type, inspector) VALUES (" +
			quote(i.Date) + ", " + strconv.FormatFloat(i.Score, 'f', -1, 64) + ", " +
			quote(i.Type) + ", " + quote(i.Inspector) + ");\n")
	}

	b.WriteString("\n-- Insert training sessions\n")
	for _, t := range data.TrainingSessions {
		b.WriteString("INSERT INTO " + dialect.Table("training_sessions") +
			" (date, topic, type, no_of_attendees, conductor) VALUES (" +
			quote(t.Date) + ", " + quote(t.Topic) + ", " + quote(t.Type) + ", " +
			strconv.Itoa(t.Attendees) + ", " + quote(t.Conductor) + ");\n")
	}

	return b.String()
}

// quote renders s as an SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SplitStatements cuts SQL text into statements on ";\n", dropping comment
// lines, blank pieces and the trailing semicolon.
func SplitStatements(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, chunk := range strings.Split(text, ";\n") {
		var kept []string
		for _, line := range strings.Split(chunk, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			kept = append(kept, line)
		}
		stmt := strings.TrimSpace(strings.Join(kept, "\n"))
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
