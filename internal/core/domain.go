package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the storage and form format for record dates.
const DateLayout = "2006-01-02"

const (
	KindIncident     RecordKind = "incident"
	KindInspection   RecordKind = "inspection"
	KindTraining     RecordKind = "training"
	KindUnclassified RecordKind = "unclassified"
)

const (
	TrainingInternal TrainingType = "internal"
	TrainingExternal TrainingType = "external"
)

const (
	MinSeverity = 1
	MaxSeverity = 5

	// HighSeverity is the level from which an incident counts as high severity.
	HighSeverity = 4

	MinDescriptionLength = 10
	MaxDescriptionLength = 2000
)

type (
	RecordKind   string
	TrainingType string

	Date struct {
		time.Time
	}

	// ProfileRef is the part of a profile joined onto an incident.
	ProfileRef struct {
		Company  string
		Username string
	}

	Incident struct {
		ID            int64
		Date          Date
		Type          string
		Activity      string
		Description   string
		SeverityLevel int
		ContractorID  string // profile uuid, empty when not linked
		Place         string
		Time          string
		CriticalLevel string
		IncidentName  string
		InsertedAt    time.Time

		Contractor *ProfileRef // joined on reads
	}

	IncidentDetail struct {
		ID             int64
		IncidentID     int64
		BodyPart       string
		Mechanism      string
		ImmediateCause string
		NatureOfInjury string
		AgencySource   string
		InsertedAt     time.Time
	}

	Inspection struct {
		ID         int64
		Date       Date
		Type       string
		Score      float64
		Inspector  string
		InsertedAt time.Time
	}

	TrainingSession struct {
		ID         int64
		Date       Date
		Topic      string
		Type       TrainingType
		Attendees  int
		Conductor  string
		InsertedAt time.Time
	}

	Profile struct {
		ID        string
		UserID    string
		Username  string
		Role      string
		Company   string
		CreatedAt time.Time
	}

	// User is a sign-in account.
	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrZeroDate            = errors.New("date cannot be zero")
	ErrEmptyType           = errors.New("empty type")
	ErrEmptyActivity       = errors.New("empty activity")
	ErrInvalidSeverity     = errors.New("severity level must be between 1 and 5")
	ErrDescriptionTooShort = errors.New("description must be at least 10 characters")
	ErrDescriptionTooLong  = errors.New("description too long (max 2000 characters)")
	ErrInvalidScore        = errors.New("score must be between 0 and 100")
	ErrEmptyInspector      = errors.New("empty inspector")
	ErrEmptyTopic          = errors.New("empty topic")
	ErrInvalidTrainingType = errors.New("training type must be internal or external")
	ErrInvalidAttendees    = errors.New("at least one attendee is required")
	ErrEmptyConductor      = errors.New("empty conductor")
	ErrMissingIncidentID   = errors.New("incident detail needs an incident id")
	ErrEmptyCompany        = errors.New("empty company")
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("already exists")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Today returns the current UTC date without a time component.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// AfterDay reports whether d falls on a later calendar day than o.
func (d Date) AfterDay(o Date) bool {
	return d.String() > o.String()
}

func (t TrainingType) Valid() bool {
	return t == TrainingInternal || t == TrainingExternal
}

// ContractorLabel is the company shown for an incident, or N/A when unlinked.
func (i Incident) ContractorLabel() string {
	if i.Contractor == nil || strings.TrimSpace(i.Contractor.Company) == "" {
		return "N/A"
	}
	return i.Contractor.Company
}

func (i Incident) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Type) == "" {
		return ErrEmptyType
	}
	if strings.TrimSpace(i.Activity) == "" {
		return ErrEmptyActivity
	}
	if i.SeverityLevel < MinSeverity || i.SeverityLevel > MaxSeverity {
		return ErrInvalidSeverity
	}
	n := len([]rune(strings.TrimSpace(i.Description)))
	if n < MinDescriptionLength {
		return ErrDescriptionTooShort
	}
	if n > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (d IncidentDetail) Validate() error {
	if d.IncidentID <= 0 {
		return ErrMissingIncidentID
	}
	return nil
}

func (i Inspection) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Type) == "" {
		return ErrEmptyType
	}
	if i.Score < 0 || i.Score > 100 {
		return ErrInvalidScore
	}
	if strings.TrimSpace(i.Inspector) == "" {
		return ErrEmptyInspector
	}
	return nil
}

func (t TrainingSession) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Topic) == "" {
		return ErrEmptyTopic
	}
	if !t.Type.Valid() {
		return ErrInvalidTrainingType
	}
	if t.Attendees < 1 {
		return ErrInvalidAttendees
	}
	if strings.TrimSpace(t.Conductor) == "" {
		return ErrEmptyConductor
	}
	return nil
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Company) == "" {
		return ErrEmptyCompany
	}
	return nil
}

var severityLabels = map[string]int{
	"low":          1,
	"minor":        1,
	"medium":       2,
	"moderate":     2,
	"high":         3,
	"serious":      3,
	"major":        4,
	"critical":     4,
	"severe":       4,
	"catastrophic": 5,
	"extreme":      5,
	"fatal":        5,
}

// ParseSeverity maps a numeric string or a label such as "Medium" to a
// severity level. Numeric values outside 1..5 are rejected.
func ParseSeverity(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int(f)
		if float64(n) != f || n < MinSeverity || n > MaxSeverity {
			return 0, false
		}
		return n, true
	}
	s = strings.TrimPrefix(s, "level ")
	if n, err := strconv.Atoi(s); err == nil && n >= MinSeverity && n <= MaxSeverity {
		return n, true
	}
	n, ok := severityLabels[s]
	return n, ok
}

// ValidateRow checks only the constraints the database schema enforces.
// Bulk imports are held to these instead of the full form rules.
func (i Incident) ValidateRow() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if i.SeverityLevel < MinSeverity || i.SeverityLevel > MaxSeverity {
		return ErrInvalidSeverity
	}
	return nil
}

func (i Inspection) ValidateRow() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if i.Score < 0 || i.Score > 100 {
		return ErrInvalidScore
	}
	return nil
}

func (t TrainingSession) ValidateRow() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidTrainingType
	}
	if t.Attendees < 1 {
		return ErrInvalidAttendees
	}
	return nil
}
