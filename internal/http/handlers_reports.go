package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"hse/internal/amqp"
	"hse/internal/core"
	"hse/internal/forms"
	applog "hse/internal/log"
	"hse/internal/services"
)

const maxFormBytes = 1 << 20

var reportTabs = map[string]bool{
	string(core.KindIncident):   true,
	string(core.KindInspection): true,
	string(core.KindTraining):   true,
}

// handleReports renders the three record-entry forms as tabs.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	tab := r.URL.Query().Get("tab")
	if !reportTabs[tab] {
		tab = string(core.KindIncident)
	}

	s.render(w, r, NewHTMXResponse(), "reports_page", reportsView{
		layoutView: s.layout(r, "Create Report", "reports"),
		Tab:        tab,
		Incident:   formView{Values: forms.IncidentDefaults(), Profiles: s.profiles(ctx)},
		Inspection: formView{Values: forms.InspectionDefaults()},
		Training:   formView{Values: forms.TrainingDefaults()},
	})
}

// profiles fills the contractor datalist. A failure only costs the
// suggestions.
func (s *Server) profiles(ctx context.Context) []core.Profile {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not list contractor profiles", applog.FieldError, err)
		return nil
	}
	return profiles
}

// submission describes one record-entry form.
type submission struct {
	kind     core.RecordKind
	label    string
	template string
	defaults func() map[string]string
}

var (
	incidentSubmission = submission{
		kind: core.KindIncident, label: "Incident", template: "incident_form", defaults: forms.IncidentDefaults,
	}
	inspectionSubmission = submission{
		kind: core.KindInspection, label: "Inspection", template: "inspection_form", defaults: forms.InspectionDefaults,
	}
	trainingSubmission = submission{
		kind: core.KindTraining, label: "Training session", template: "training_form", defaults: forms.TrainingDefaults,
	}
)

// saveFunc stores the parsed form. Field errors found while saving, such
// as an unknown contractor, are returned separately from backend errors.
type saveFunc func(ctx context.Context) (int64, forms.FieldErrors, error)

func (s *Server) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	values, ok := s.postedValues(w, r)
	if !ok {
		return
	}
	form, fieldErrs := forms.ParseIncident(values)
	s.submit(w, r, incidentSubmission, values, fieldErrs, func(ctx context.Context) (int64, forms.FieldErrors, error) {
		contractorID, err := s.store.ResolveContractor(ctx, form.ContractorRef)
		if errors.Is(err, services.ErrUnknownContractor) {
			return 0, forms.FieldErrors{forms.FieldContractor: "no contractor matches this id or company"}, nil
		}
		if err != nil {
			return 0, nil, err
		}
		id, err := s.store.InsertIncident(ctx, form.Incident(contractorID))
		return id, nil, err
	})
}

func (s *Server) handleCreateInspection(w http.ResponseWriter, r *http.Request) {
	values, ok := s.postedValues(w, r)
	if !ok {
		return
	}
	form, fieldErrs := forms.ParseInspection(values)
	s.submit(w, r, inspectionSubmission, values, fieldErrs, func(ctx context.Context) (int64, forms.FieldErrors, error) {
		id, err := s.store.InsertInspection(ctx, form.Inspection())
		return id, nil, err
	})
}

func (s *Server) handleCreateTraining(w http.ResponseWriter, r *http.Request) {
	values, ok := s.postedValues(w, r)
	if !ok {
		return
	}
	form, fieldErrs := forms.ParseTraining(values)
	s.submit(w, r, trainingSubmission, values, fieldErrs, func(ctx context.Context) (int64, forms.FieldErrors, error) {
		id, err := s.store.InsertTrainingSession(ctx, form.TrainingSession())
		return id, nil, err
	})
}

// postedValues reads a form-encoded or JSON body from a POST.
func (s *Server) postedValues(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.logger.WarnContext(r.Context(), "Could not parse request body",
			applog.FieldOperation, applog.OpParse,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		BadRequestError("Invalid request format").Write(w)
		return nil, false
	}
	return parser.Values(), true
}

// submit answers a form post: 422 with the form kept on field errors, 500
// with the form kept on backend errors, and a fresh form on success.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, sub submission, values url.Values, fieldErrs forms.FieldErrors, save saveFunc) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	view := formView{Values: forms.Values(values), Errors: fieldErrs}
	if sub.kind == core.KindIncident {
		view.Profiles = s.profiles(ctx)
	}

	if fieldErrs != nil {
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), sub.template, view)
		return
	}

	id, saveErrs, err := save(ctx)
	if saveErrs != nil {
		view.Errors = saveErrs
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), sub.template, view)
		return
	}
	if err != nil {
		msg := "Could not save " + lowerFirst(sub.label) + " report"
		s.logger.ErrorContext(ctx, msg,
			applog.FieldComponent, applog.ComponentRecords,
			applog.FieldOperation, applog.OpCreate,
			applog.FieldKind, string(sub.kind),
			applog.FieldError, err)
		view.Message = msg
		s.render(w, r, NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification(msg), sub.template, view)
		return
	}

	s.recordsCreated.Add(1)
	applog.NewStructuredLogger(s.logger).LogRecordsCreated(ctx, string(sub.kind), []int64{id}, amqp.SourceForm)

	fresh := formView{Values: sub.defaults()}
	if sub.kind == core.KindIncident {
		fresh.Profiles = view.Profiles
	}
	s.render(w, r, NewHTMXResponse().
		TriggerFormReset().
		TriggerRecordsChanged(string(sub.kind)).
		TriggerSuccessNotification(sub.label+" report saved"), sub.template, fresh)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
