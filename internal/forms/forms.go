package forms

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"hse/internal/core"
)

// Form field names shared with the templates.
const (
	FieldDate          = "date"
	FieldType          = "type"
	FieldSeverity      = "severity_level"
	FieldDescription   = "description"
	FieldActivity      = "activity"
	FieldContractor    = "contractor_id"
	FieldPlace         = "place"
	FieldTime          = "time"
	FieldCriticalLevel = "critical_level"
	FieldIncidentName  = "incident_name"
	FieldScore         = "score"
	FieldInspector     = "inspector"
	FieldTopic         = "topic"
	FieldAttendees     = "no_of_attendees"
	FieldConductor     = "conductor"
	FieldEmail         = "email"
	FieldPassword      = "password"
)

type IncidentForm struct {
	Date          time.Time `form:"date" validate:"required,notfuture"`
	Type          string    `form:"type" validate:"required,max=100"`
	SeverityLevel int       `form:"severity_level" validate:"gte=1,lte=5"`
	Description   string    `form:"description" validate:"required,min=10,max=2000"`
	Activity      string    `form:"activity" validate:"required,max=200"`
	ContractorRef string    `form:"contractor_id" validate:"max=200"`
	Place         string    `form:"place" validate:"max=200"`
	Time          string    `form:"time" validate:"max=20"`
	CriticalLevel string    `form:"critical_level" validate:"max=50"`
	IncidentName  string    `form:"incident_name" validate:"max=200"`
}

type InspectionForm struct {
	Date      time.Time `form:"date" validate:"required,notfuture"`
	Type      string    `form:"type" validate:"required,max=100"`
	Score     float64   `form:"score" validate:"gte=0,lte=100"`
	Inspector string    `form:"inspector" validate:"required,max=200"`
}

type TrainingForm struct {
	Date      time.Time `form:"date" validate:"required,notfuture"`
	Topic     string    `form:"topic" validate:"required,max=200"`
	Type      string    `form:"type" validate:"required,oneof=internal external"`
	Attendees int       `form:"no_of_attendees" validate:"gte=1"`
	Conductor string    `form:"conductor" validate:"required,max=200"`
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// AccountForm is used when creating a sign-in account.
type AccountForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8,max=72"`
}

// ParseIncident reads and validates the incident form.
func ParseIncident(values url.Values) (IncidentForm, FieldErrors) {
	fe := FieldErrors{}
	f := IncidentForm{
		Date:          parseDate(values, FieldDate, fe),
		Type:          Value(values, FieldType),
		SeverityLevel: parseInt(values, FieldSeverity, fe),
		Description:   Value(values, FieldDescription),
		Activity:      Value(values, FieldActivity),
		ContractorRef: Value(values, FieldContractor),
		Place:         Value(values, FieldPlace),
		Time:          Value(values, FieldTime),
		CriticalLevel: Value(values, FieldCriticalLevel),
		IncidentName:  Value(values, FieldIncidentName),
	}
	check(f, fe)
	return f, nilIfEmpty(fe)
}

// ParseInspection reads and validates the inspection form.
func ParseInspection(values url.Values) (InspectionForm, FieldErrors) {
	fe := FieldErrors{}
	f := InspectionForm{
		Date:      parseDate(values, FieldDate, fe),
		Type:      Value(values, FieldType),
		Score:     parseFloat(values, FieldScore, fe),
		Inspector: Value(values, FieldInspector),
	}
	check(f, fe)
	return f, nilIfEmpty(fe)
}

// ParseTraining reads and validates the training session form.
func ParseTraining(values url.Values) (TrainingForm, FieldErrors) {
	fe := FieldErrors{}
	f := TrainingForm{
		Date:      parseDate(values, FieldDate, fe),
		Topic:     Value(values, FieldTopic),
		Type:      strings.ToLower(Value(values, FieldType)),
		Attendees: parseInt(values, FieldAttendees, fe),
		Conductor: Value(values, FieldConductor),
	}
	check(f, fe)
	return f, nilIfEmpty(fe)
}

// ParseLogin reads and validates the sign-in form.
func ParseLogin(values url.Values) (LoginForm, FieldErrors) {
	fe := FieldErrors{}
	f := LoginForm{
		Email:    strings.ToLower(Value(values, FieldEmail)),
		Password: values.Get(FieldPassword),
	}
	check(f, fe)
	return f, nilIfEmpty(fe)
}

// ValidateAccount checks the credentials of a new sign-in account.
func ValidateAccount(email, password string) (AccountForm, FieldErrors) {
	fe := FieldErrors{}
	f := AccountForm{Email: strings.ToLower(Sanitize(email)), Password: password}
	check(f, fe)
	return f, nilIfEmpty(fe)
}

// Incident converts the form into a record linked to contractorID.
func (f IncidentForm) Incident(contractorID string) core.Incident {
	return core.Incident{
		Date:          core.Date{Time: f.Date},
		Type:          f.Type,
		Activity:      f.Activity,
		Description:   f.Description,
		SeverityLevel: f.SeverityLevel,
		ContractorID:  contractorID,
		Place:         f.Place,
		Time:          f.Time,
		CriticalLevel: f.CriticalLevel,
		IncidentName:  f.IncidentName,
	}
}

func (f InspectionForm) Inspection() core.Inspection {
	return core.Inspection{
		Date:      core.Date{Time: f.Date},
		Type:      f.Type,
		Score:     f.Score,
		Inspector: f.Inspector,
	}
}

func (f TrainingForm) TrainingSession() core.TrainingSession {
	return core.TrainingSession{
		Date:      core.Date{Time: f.Date},
		Topic:     f.Topic,
		Type:      core.TrainingType(f.Type),
		Attendees: f.Attendees,
		Conductor: f.Conductor,
	}
}

// Defaults for freshly rendered forms.

func IncidentDefaults() map[string]string {
	return map[string]string{FieldDate: core.Today().String(), FieldSeverity: "1"}
}

func InspectionDefaults() map[string]string {
	return map[string]string{FieldDate: core.Today().String(), FieldScore: "85"}
}

func TrainingDefaults() map[string]string {
	return map[string]string{
		FieldDate:      core.Today().String(),
		FieldType:      string(core.TrainingInternal),
		FieldAttendees: "10",
	}
}

// Values flattens posted values for re-rendering a rejected form.
func Values(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k := range values {
		if k == FieldPassword {
			continue
		}
		out[k] = Value(values, k)
	}
	return out
}

// Value returns the sanitized value of a form field.
func Value(values url.Values, field string) string {
	return Sanitize(values.Get(field))
}

// Sanitize removes control characters and trims whitespace.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func parseDate(values url.Values, field string, fe FieldErrors) time.Time {
	v := Value(values, field)
	if v == "" {
		return time.Time{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		fe.set(field, "must be a date (YYYY-MM-DD)")
		return time.Time{}
	}
	return d.Time
}

func parseInt(values url.Values, field string, fe FieldErrors) int {
	v := Value(values, field)
	if v == "" {
		fe.set(field, "is required")
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fe.set(field, "must be a whole number")
		return 0
	}
	return n
}

func parseFloat(values url.Values, field string, fe FieldErrors) float64 {
	v := strings.ReplaceAll(Value(values, field), ",", ".")
	if v == "" {
		fe.set(field, "is required")
		return 0
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		fe.set(field, "must be a number")
		return 0
	}
	return n
}

func nilIfEmpty(fe FieldErrors) FieldErrors {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
