package http

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"hse/internal/auth"
	"hse/internal/core"
	applog "hse/internal/log"
)

const fetchErrorMessage = "Could not load dashboard data"

// dashboardData is one read of the three record tables.
type dashboardData struct {
	Incidents   []core.Incident
	Inspections []core.Inspection
	Trainings   []core.TrainingSession
}

// fetchDashboard reads the three tables concurrently. The first error
// cancels the other reads and fails the whole fetch.
func (s *Server) fetchDashboard(ctx context.Context) (dashboardData, error) {
	var d dashboardData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if d.Incidents, err = s.store.ListIncidents(ctx); err != nil {
			return fmt.Errorf("list incidents: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if d.Inspections, err = s.store.ListInspections(ctx); err != nil {
			return fmt.Errorf("list inspections: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if d.Trainings, err = s.store.ListTrainingSessions(ctx); err != nil {
			return fmt.Errorf("list training sessions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return dashboardData{}, err
	}
	return d, nil
}

func (s *Server) dashboardView(r *http.Request, d dashboardData) dashboardView {
	return dashboardView{
		layoutView:  s.layout(r, "Dashboard", "dashboard"),
		Summary:     core.Summarize(d.Incidents, d.Inspections, d.Trainings),
		Incidents:   d.Incidents,
		Inspections: d.Inspections,
		Trainings:   d.Trainings,
		Charts:      core.BuildCharts(d.Incidents, d.Inspections, d.Trainings),

		SQLImportEnabled: s.opts.SQLImportEnabled,
		MaxUploadMB:      s.opts.MaxUploadBytes >> 20,
	}
}

func (s *Server) layout(r *http.Request, title, active string) layoutView {
	return layoutView{Title: title, User: auth.UserFromContext(r.Context()), Active: active}
}

// handleDashboard renders the full dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	d, err := s.fetchDashboard(ctx)
	if err != nil {
		s.logFetchError(ctx, r, err)
		view := s.dashboardView(r, dashboardData{})
		view.Error = &errorView{Title: "Error", Message: fetchErrorMessage}
		s.render(w, r, NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification(fetchErrorMessage), "dashboard_page", view)
		return
	}
	s.render(w, r, NewHTMXResponse(), "dashboard_page", s.dashboardView(r, d))
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	s.dashboardPartial(w, r, "summary_cards")
}

func (s *Server) handleTablesPartial(w http.ResponseWriter, r *http.Request) {
	s.dashboardPartial(w, r, "records_tables")
}

func (s *Server) handleChartsPartial(w http.ResponseWriter, r *http.Request) {
	s.dashboardPartial(w, r, "charts")
}

// dashboardPartial renders one dashboard section. The sections reload
// on records:changed.
func (s *Server) dashboardPartial(w http.ResponseWriter, r *http.Request, name string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	d, err := s.fetchDashboard(ctx)
	if err != nil {
		s.logFetchError(ctx, r, err)
		s.render(w, r, NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification(fetchErrorMessage), "error_block",
			errorView{Title: "Error", Message: fetchErrorMessage})
		return
	}
	s.render(w, r, NewHTMXResponse(), name, s.dashboardView(r, d))
}

// handleChartsJSON serves the chart series for scripts and API clients.
func (s *Server) handleChartsJSON(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	d, err := s.fetchDashboard(ctx)
	if err != nil {
		s.logFetchError(ctx, r, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fetchErrorMessage})
		return
	}
	writeJSON(w, http.StatusOK, core.BuildCharts(d.Incidents, d.Inspections, d.Trainings))
}

func (s *Server) logFetchError(ctx context.Context, r *http.Request, err error) {
	s.logger.ErrorContext(ctx, "Dashboard fetch failed",
		applog.FieldComponent, applog.ComponentRecords,
		applog.FieldOperation, applog.OpList,
		applog.FieldPath, r.URL.Path,
		applog.FieldError, err)
}
