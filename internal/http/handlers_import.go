package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"hse/internal/importer"
	applog "hse/internal/log"
	"hse/internal/sqlimport"
)

const uploadField = "file"

// handleImportSpreadsheet parses an uploaded workbook and bulk-inserts
// what it finds, table by table.
func (s *Server) handleImportSpreadsheet(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg := "The file is larger than " + sizeLabel(s.opts.MaxUploadBytes)
			s.importFailed(w, r, http.StatusRequestEntityTooLarge, msg)
			return
		}
		s.importFailed(w, r, http.StatusBadRequest, "Invalid upload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.importFailed(w, r, http.StatusUnprocessableEntity, "Choose an .xlsx or .xls file to upload")
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ImportTimeout)
	defer cancel()

	report, err := s.importer.Import(ctx, file, header.Filename)
	switch {
	case errors.Is(err, importer.ErrUnsupportedFormat), errors.Is(err, importer.ErrUnreadable):
		s.logger.WarnContext(ctx, "Spreadsheet rejected",
			applog.FieldComponent, applog.ComponentImport,
			applog.FieldFilename, header.Filename,
			applog.FieldError, err)
		s.importFailed(w, r, http.StatusUnprocessableEntity, capitalize(err.Error()))
		return
	case err != nil:
		s.backendError(ctx, w, r, "Import failed", err, applog.OpImport)
		return
	}
	s.importsRun.Add(1)

	b := NewHTMXResponse().TriggerRecordsChanged("all")
	switch failed := len(report.Failed()); {
	case failed > 0 && report.Inserted() == 0:
		b.TriggerErrorNotification("Import failed: no rows were saved")
	case failed > 0:
		b.TriggerWarningNotification(fmt.Sprintf("Imported %d rows, %d tables failed", report.Inserted(), failed))
	default:
		b.TriggerSuccessNotification(fmt.Sprintf("Imported %d rows", report.Inserted()))
	}
	s.render(w, r, b, "import_result", importView{Report: report})
}

func (s *Server) importFailed(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, NewHTMXResponse().
		Status(status).
		TriggerErrorNotification(msg), "import_result", importView{Error: msg})
}

// handleImportSampleSQL runs the canned dataset as SQL statements, each
// screened by the guard. It is off unless enabled in the configuration.
func (s *Server) handleImportSampleSQL(w http.ResponseWriter, r *http.Request) {
	if !s.opts.SQLImportEnabled {
		NotFoundError("SQL import is disabled").Write(w)
		return
	}
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ImportTimeout)
	defer cancel()

	data, err := sqlimport.LoadSample()
	if err != nil {
		s.backendError(ctx, w, r, "Could not load the sample dataset", err, applog.OpImport)
		return
	}
	stmts := sqlimport.SplitStatements(sqlimport.GenerateSQL(s.opts.Dialect, data))
	report := sqlimport.ExecStatements(ctx, s.store, s.guard, stmts)
	s.importsRun.Add(1)

	failed := len(report.Failed())

	b := NewHTMXResponse().TriggerRecordsChanged("all")
	switch {
	case report.Executed() == 0:
		b.TriggerErrorNotification("SQL import failed: no statements ran")
	case failed > 0:
		b.TriggerWarningNotification(fmt.Sprintf("%d of %d statements failed", failed, len(stmts)))
	default:
		b.TriggerSuccessNotification(fmt.Sprintf("Ran %d statements", report.Executed()))
	}
	s.render(w, r, b, "sql_result", sqlImportView{Report: report, Statements: len(stmts)})
}

func sizeLabel(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d KB", n>>10)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
