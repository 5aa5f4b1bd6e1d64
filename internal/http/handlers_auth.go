package http

import (
	"context"
	"errors"
	"net/http"

	"hse/internal/auth"
	"hse/internal/forms"
	applog "hse/internal/log"
)

const dashboardPath = "/dashboard"

// handleRoot sends visitors to the dashboard or the sign-in page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if _, ok := s.sessions.CurrentUser(r); ok {
		http.Redirect(w, r, dashboardPath, http.StatusFound)
		return
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusFound)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if _, ok := s.sessions.CurrentUser(r); ok {
			http.Redirect(w, r, dashboardPath, http.StatusFound)
			return
		}
		s.render(w, r, NewHTMXResponse(), "login_page", loginView{
			layoutView: layoutView{Title: "Sign in"},
		})
	case http.MethodPost:
		s.handleLoginSubmit(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	view := loginView{
		layoutView: layoutView{Title: "Sign in"},
		Values:     forms.Values(r.PostForm),
	}
	form, fieldErrs := forms.ParseLogin(r.PostForm)
	if fieldErrs != nil {
		view.Errors = fieldErrs
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "login_page", view)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	user, err := s.accounts.Authenticate(ctx, form.Email, form.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.logger.WarnContext(ctx, "Sign-in rejected",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldOperation, applog.OpLogin,
			applog.FieldUser, form.Email,
			applog.FieldClientIP, s.detector.ExtractClientIP(r))
		view.Error = "Invalid email or password"
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnauthorized), "login_page", view)
		return
	case err != nil:
		s.backendError(ctx, w, r, "Sign-in failed", err, applog.OpLogin)
		return
	}

	if err := s.sessions.Login(w, r, user.Email); err != nil {
		s.backendError(ctx, w, r, "Could not start the session", err, applog.OpLogin)
		return
	}
	s.logger.InfoContext(ctx, "User signed in",
		applog.FieldComponent, applog.ComponentAuth,
		applog.FieldOperation, applog.OpLogin,
		applog.FieldUser, user.Email)
	redirect(w, r, dashboardPath)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if err := s.sessions.Logout(w, r); err != nil {
		s.logger.ErrorContext(r.Context(), "Sign-out failed",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldError, err)
	}
	redirect(w, r, auth.LoginPath)
}

// redirect navigates the browser after a form post, through HX-Redirect
// when the post came from htmx.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(path).Write(w)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// backendError logs a failed store call and answers with an error block
// and a toast naming the operation.
func (s *Server) backendError(ctx context.Context, w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	s.logger.ErrorContext(ctx, msg,
		applog.FieldOperation, op,
		applog.FieldPath, r.URL.Path,
		applog.FieldError, err)
	InternalServerError(msg).
		TriggerErrorNotification(msg).
		Write(w)
}
