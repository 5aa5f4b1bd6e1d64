package google

import (
	"fmt"
	"strings"
)

// a1Range builds an A1 range for tab, quoting names that are not plain
// identifiers ("Training Sessions" becomes 'Training Sessions').
func a1Range(tab, cells string) string {
	if plainTabName(tab) {
		return tab + "!" + cells
	}
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + cells
}

func plainTabName(tab string) bool {
	if tab == "" {
		return false
	}
	for _, r := range tab {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

func toStrings(in []interface{}) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.TrimSpace(fmt.Sprint(v)))
	}
	return out
}

// escapeFormulas returns rows with every string cell that Sheets would
// read as a formula prefixed by an apostrophe, which Sheets keeps as a
// text marker and does not display.
func escapeFormulas(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			if s, ok := v.(string); ok && startsLikeFormula(s) {
				v = "'" + s
			}
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

func startsLikeFormula(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return true
	}
	return false
}
