package forms

import (
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hse/internal/core"
)

func incidentValues() url.Values {
	return url.Values{
		FieldDate:        {"2024-01-15"},
		FieldType:        {"Near Miss"},
		FieldSeverity:    {"3"},
		FieldDescription: {"Worker almost fell from scaffolding"},
		FieldActivity:    {"Construction"},
	}
}

func inspectionValues() url.Values {
	return url.Values{
		FieldDate:      {"2024-01-10"},
		FieldType:      {"Safety Audit"},
		FieldScore:     {"85"},
		FieldInspector: {"Robert Wilson"},
	}
}

func trainingValues() url.Values {
	return url.Values{
		FieldDate:      {"2024-01-05"},
		FieldTopic:     {"Fire Safety"},
		FieldType:      {"internal"},
		FieldAttendees: {"10"},
		FieldConductor: {"Safety Officer"},
	}
}

func with(v url.Values, field, value string) url.Values {
	out := url.Values{}
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	out.Set(field, value)
	return out
}

func TestParseIncidentSeverityBoundaries(t *testing.T) {
	tests := []struct {
		severity string
		ok       bool
	}{
		{"1", true},
		{"5", true},
		{"0", false},
		{"6", false},
		{"-1", false},
		{"abc", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("severity_"+tt.severity, func(t *testing.T) {
			f, fe := ParseIncident(with(incidentValues(), FieldSeverity, tt.severity))
			if tt.ok {
				require.Nil(t, fe)
				assert.Equal(t, tt.severity, strconv.Itoa(f.SeverityLevel))
				return
			}
			require.NotNil(t, fe)
			assert.True(t, fe.Has(FieldSeverity), "errors: %v", fe)
			assert.Len(t, fe, 1)
		})
	}
}

func TestParseIncidentFieldErrors(t *testing.T) {
	v := url.Values{
		FieldSeverity:    {"2"},
		FieldDescription: {"too short"},
	}
	_, fe := ParseIncident(v)
	require.NotNil(t, fe)
	assert.Equal(t, "is required", fe.Get(FieldDate))
	assert.Equal(t, "is required", fe.Get(FieldType))
	assert.Equal(t, "is required", fe.Get(FieldActivity))
	assert.Equal(t, "must be at least 10 characters", fe.Get(FieldDescription))
	assert.False(t, fe.Has(FieldContractor))
}

func TestParseIncidentRejectsFutureDate(t *testing.T) {
	future := core.Today().AddDate(0, 0, 2).Format(core.DateLayout)
	_, fe := ParseIncident(with(incidentValues(), FieldDate, future))
	require.NotNil(t, fe)
	assert.Equal(t, "cannot be in the future", fe.Get(FieldDate))

	_, fe = ParseIncident(with(incidentValues(), FieldDate, "15/01/2024"))
	require.NotNil(t, fe)
	assert.Equal(t, "must be a date (YYYY-MM-DD)", fe.Get(FieldDate))
}

func TestParseIncidentToRecord(t *testing.T) {
	v := with(incidentValues(), FieldPlace, "  Site A\x00 ")
	f, fe := ParseIncident(v)
	require.Nil(t, fe)

	inc := f.Incident("5f0c7a5e-0c31-4a0e-9a64-8c1f7c6d2a11")
	assert.Equal(t, "2024-01-15", inc.Date.String())
	assert.Equal(t, 3, inc.SeverityLevel)
	assert.Equal(t, "Site A", inc.Place)
	assert.Equal(t, "5f0c7a5e-0c31-4a0e-9a64-8c1f7c6d2a11", inc.ContractorID)
	assert.NoError(t, inc.Validate())
}

func TestParseInspectionScoreBoundaries(t *testing.T) {
	tests := []struct {
		score string
		want  float64
		ok    bool
	}{
		{"0", 0, true},
		{"100", 100, true},
		{"92,5", 92.5, true},
		{"-1", 0, false},
		{"100.5", 0, false},
		{"", 0, false},
		{"great", 0, false},
	}
	for _, tt := range tests {
		t.Run("score_"+tt.score, func(t *testing.T) {
			f, fe := ParseInspection(with(inspectionValues(), FieldScore, tt.score))
			if tt.ok {
				require.Nil(t, fe)
				assert.Equal(t, tt.want, f.Score)
				assert.NoError(t, f.Inspection().Validate())
				return
			}
			require.NotNil(t, fe)
			assert.True(t, fe.Has(FieldScore))
		})
	}
}

func TestParseTrainingBoundaries(t *testing.T) {
	f, fe := ParseTraining(with(trainingValues(), FieldAttendees, "1"))
	require.Nil(t, fe)
	assert.Equal(t, 1, f.Attendees)

	_, fe = ParseTraining(with(trainingValues(), FieldAttendees, "0"))
	require.NotNil(t, fe)
	assert.Equal(t, "must be at least 1", fe.Get(FieldAttendees))

	_, fe = ParseTraining(with(trainingValues(), FieldType, "online"))
	require.NotNil(t, fe)
	assert.Equal(t, "must be one of: internal external", fe.Get(FieldType))

	f, fe = ParseTraining(with(trainingValues(), FieldType, "External"))
	require.Nil(t, fe)
	assert.Equal(t, core.TrainingExternal, f.TrainingSession().Type)
}

func TestParseLogin(t *testing.T) {
	f, fe := ParseLogin(url.Values{FieldEmail: {" Admin@Example.com "}, FieldPassword: {"s3cret pass"}})
	require.Nil(t, fe)
	assert.Equal(t, "admin@example.com", f.Email)
	assert.Equal(t, "s3cret pass", f.Password)

	_, fe = ParseLogin(url.Values{FieldEmail: {"not-an-email"}})
	require.NotNil(t, fe)
	assert.Equal(t, "must be a valid email", fe.Get(FieldEmail))
	assert.Equal(t, "is required", fe.Get(FieldPassword))
}

func TestValidateAccount(t *testing.T) {
	_, fe := ValidateAccount("ops@example.com", "short")
	require.NotNil(t, fe)
	assert.Equal(t, "must be at least 8 characters", fe.Get(FieldPassword))

	_, fe = ValidateAccount("ops@example.com", strings.Repeat("p", 12))
	assert.Nil(t, fe)
}

func TestValuesDropsPassword(t *testing.T) {
	got := Values(url.Values{FieldEmail: {" a@b.c "}, FieldPassword: {"x"}})
	assert.Equal(t, map[string]string{FieldEmail: "a@b.c"}, got)
}

func TestFieldErrorsError(t *testing.T) {
	fe := FieldErrors{"score": "must be at most 100", "date": "is required"}
	assert.Equal(t, "invalid form: date is required; score must be at most 100", fe.Error())
}
