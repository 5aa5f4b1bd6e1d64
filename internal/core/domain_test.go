package core

import (
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-03-15 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-03-15" {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDate("15/03/2024"); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
	if (Date{}).String() != "" {
		t.Fatalf("zero date should render empty")
	}
}

func TestIncidentValidate(t *testing.T) {
	good := Incident{
		Date:          NewDate(2024, 1, 15),
		Type:          "Near Miss",
		Activity:      "Construction",
		Description:   "Worker almost fell from scaffolding",
		SeverityLevel: 3,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	for _, lvl := range []int{1, 5} {
		i := good
		i.SeverityLevel = lvl
		if err := i.Validate(); err != nil {
			t.Fatalf("severity %d should be accepted, got %v", lvl, err)
		}
	}

	bads := map[string]func(*Incident){
		"zero date":         func(i *Incident) { i.Date = Date{} },
		"empty type":        func(i *Incident) { i.Type = " " },
		"empty activity":    func(i *Incident) { i.Activity = "" },
		"severity 0":        func(i *Incident) { i.SeverityLevel = 0 },
		"severity 6":        func(i *Incident) { i.SeverityLevel = 6 },
		"short description": func(i *Incident) { i.Description = "too short" },
		"long description":  func(i *Incident) { i.Description = strings.Repeat("x", MaxDescriptionLength+1) },
	}
	for name, mutate := range bads {
		i := good
		mutate(&i)
		if err := i.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestInspectionValidate(t *testing.T) {
	for _, score := range []float64{0, 100, 85.5} {
		i := Inspection{Date: NewDate(2024, 1, 10), Type: "Safety Audit", Score: score, Inspector: "Robert Wilson"}
		if err := i.Validate(); err != nil {
			t.Fatalf("score %v should be accepted, got %v", score, err)
		}
	}
	for _, score := range []float64{-0.1, 100.1} {
		i := Inspection{Date: NewDate(2024, 1, 10), Type: "Safety Audit", Score: score, Inspector: "Robert Wilson"}
		if err := i.Validate(); err != ErrInvalidScore {
			t.Fatalf("score %v: expected ErrInvalidScore, got %v", score, err)
		}
	}
}

func TestTrainingSessionValidate(t *testing.T) {
	good := TrainingSession{Date: NewDate(2024, 1, 5), Topic: "Fire Safety", Type: TrainingInternal, Attendees: 1, Conductor: "Safety Officer"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Attendees = 0
	if err := zero.Validate(); err != ErrInvalidAttendees {
		t.Fatalf("expected ErrInvalidAttendees, got %v", err)
	}

	badType := good
	badType.Type = "online"
	if err := badType.Validate(); err != ErrInvalidTrainingType {
		t.Fatalf("expected ErrInvalidTrainingType, got %v", err)
	}
}

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Medium", 2, true},
		{"low", 1, true},
		{"HIGH", 3, true},
		{"Critical", 4, true},
		{"3", 3, true},
		{"5.0", 5, true},
		{"Level 4", 4, true},
		{"0", 0, false},
		{"6", 0, false},
		{"2.5", 0, false},
		{"", 0, false},
		{"unknown", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseSeverity(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseSeverity(%q) = %d, %v; want %d, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestContractorLabel(t *testing.T) {
	if got := (Incident{}).ContractorLabel(); got != "N/A" {
		t.Fatalf("got %q", got)
	}
	i := Incident{Contractor: &ProfileRef{Company: "BuildCorp Ltd"}}
	if got := i.ContractorLabel(); got != "BuildCorp Ltd" {
		t.Fatalf("got %q", got)
	}
}
