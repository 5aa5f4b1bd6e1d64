package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"hse/internal/core"
	"hse/internal/records"
)

// ErrUnreadable is what users see when a spreadsheet cannot be parsed; the
// underlying error is logged.
var ErrUnreadable = errors.New("could not read spreadsheet")

// Target tables, in insert order.
const (
	TableIncidents        = "incidents"
	TableIncidentDetails  = "incident_details"
	TableInspections      = "inspections"
	TableTrainingSessions = "training_sessions"
)

// ContractorResolver maps a contractor cell to a profile id.
type ContractorResolver interface {
	ResolveContractor(ctx context.Context, ref string) (string, error)
}

// Importer parses spreadsheets and bulk-inserts the rows.
type Importer struct {
	writer      records.BulkWriter
	contractors ContractorResolver
	today       func() core.Date
}

func New(writer records.BulkWriter, contractors ContractorResolver) *Importer {
	return &Importer{
		writer:      writer,
		contractors: contractors,
		today:       core.Today,
	}
}

// Batch holds the records parsed from one workbook.
type Batch struct {
	Sheets       int
	Rows         int
	Unclassified int
	Incidents    []core.Incident
	Details      []PendingDetail
	Inspections  []core.Inspection
	Trainings    []core.TrainingSession
	Warnings     []string

	contractorRefs []string // parallel to Incidents
}

// AddIncident appends an incident with its unresolved contractor cell.
func (b *Batch) AddIncident(i core.Incident, contractorRef string) {
	b.Incidents = append(b.Incidents, i)
	b.contractorRefs = append(b.contractorRefs, contractorRef)
}

// PendingDetail is an incident detail waiting for its incident's id.
type PendingDetail struct {
	Incident int // index into Batch.Incidents
	Detail   core.IncidentDetail
}

// Parse classifies and extracts every row of the sheets.
func (im *Importer) Parse(sheets []Sheet) *Batch {
	today := im.today()
	b := &Batch{Sheets: len(sheets)}
	for _, sheet := range sheets {
		for _, row := range sheet.Rows {
			b.Rows++
			switch Classify(sheet.Name, row) {
			case core.KindIncident:
				b.AddIncident(ExtractIncident(row, today))
				if d, ok := ExtractIncidentDetail(row); ok {
					b.Details = append(b.Details, PendingDetail{Incident: len(b.Incidents) - 1, Detail: d})
				}
			case core.KindInspection:
				b.Inspections = append(b.Inspections, ExtractInspection(row, today))
			case core.KindTraining:
				b.Trainings = append(b.Trainings, ExtractTraining(row, today))
			default:
				b.Unclassified++
				b.Warnings = append(b.Warnings, fmt.Sprintf("sheet %q row %d: could not tell the record kind, skipped", sheet.Name, row.Number))
			}
		}
	}
	return b
}

// TableReport is the outcome of one bulk insert.
type TableReport struct {
	Table    string
	Parsed   int
	Inserted int
	Err      error
}

// Report summarises an import. Tables are attempted one after another
// without a surrounding transaction, so some may succeed while others fail.
type Report struct {
	Filename     string
	Sheets       int
	Rows         int
	Unclassified int
	Tables       []TableReport
	Warnings     []string
}

// Inserted returns the number of rows written across all tables.
func (r *Report) Inserted() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Inserted
	}
	return n
}

// Failed returns the tables whose insert failed.
func (r *Report) Failed() []TableReport {
	var out []TableReport
	for _, t := range r.Tables {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// Import reads the upload and inserts what it finds.
func (im *Importer) Import(ctx context.Context, r io.Reader, filename string) (*Report, error) {
	sheets, err := ReadWorkbook(r, filename)
	if errors.Is(err, ErrUnsupportedFormat) {
		return nil, err
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read spreadsheet", "filename", filename, "error", err)
		return nil, ErrUnreadable
	}

	batch := im.Parse(sheets)
	report := im.Insert(ctx, batch)
	report.Filename = filename

	slog.InfoContext(ctx, "Spreadsheet imported",
		"filename", filename,
		"sheets", report.Sheets,
		"rows", report.Rows,
		"inserted", report.Inserted(),
		"unclassified", report.Unclassified,
		"failed_tables", len(report.Failed()))

	return report, nil
}

// Insert resolves contractors and writes the batch table by table. A failed
// table never stops the tables after it.
func (im *Importer) Insert(ctx context.Context, b *Batch) *Report {
	report := &Report{
		Sheets:       b.Sheets,
		Rows:         b.Rows,
		Unclassified: b.Unclassified,
		Warnings:     append([]string(nil), b.Warnings...),
	}

	incidents := im.linkContractors(ctx, b, report)

	incidentIDs, incidentReport := insertTable(ctx, TableIncidents, incidents, im.writer.InsertIncidents)
	report.Tables = append(report.Tables, incidentReport)

	details := make([]core.IncidentDetail, 0, len(b.Details))
	for _, pd := range b.Details {
		d := pd.Detail
		if pd.Incident < len(incidentIDs) {
			d.IncidentID = incidentIDs[pd.Incident]
		}
		details = append(details, d)
	}
	if len(details) > 0 && incidentReport.Err != nil {
		report.Tables = append(report.Tables, TableReport{
			Table:  TableIncidentDetails,
			Parsed: len(details),
			Err:    fmt.Errorf("incidents were not inserted: %w", incidentReport.Err),
		})
	} else {
		_, r := insertTable(ctx, TableIncidentDetails, details, im.writer.InsertIncidentDetails)
		report.Tables = append(report.Tables, r)
	}

	_, r := insertTable(ctx, TableInspections, b.Inspections, im.writer.InsertInspections)
	report.Tables = append(report.Tables, r)

	_, r = insertTable(ctx, TableTrainingSessions, b.Trainings, im.writer.InsertTrainingSessions)
	report.Tables = append(report.Tables, r)

	return report
}

func (im *Importer) linkContractors(ctx context.Context, b *Batch, report *Report) []core.Incident {
	incidents := append([]core.Incident(nil), b.Incidents...)
	if im.contractors == nil {
		return incidents
	}

	resolved := make(map[string]string)
	for i, ref := range b.contractorRefs {
		if ref == "" || i >= len(incidents) {
			continue
		}
		id, seen := resolved[ref]
		if !seen {
			var err error
			id, err = im.contractors.ResolveContractor(ctx, ref)
			if err != nil {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("contractor %q not found, incidents left unlinked", ref))
				slog.WarnContext(ctx, "Unresolved contractor in import", "contractor", ref, "error", err)
				id = ""
			}
			resolved[ref] = id
		}
		incidents[i].ContractorID = id
	}
	return incidents
}

func insertTable[T any](ctx context.Context, table string, items []T, insert func(context.Context, []T) ([]int64, error)) ([]int64, TableReport) {
	report := TableReport{Table: table, Parsed: len(items)}
	if len(items) == 0 {
		return nil, report
	}

	ids, err := insert(ctx, items)
	if err != nil {
		slog.ErrorContext(ctx, "Bulk insert failed", "table", table, "rows", len(items), "error", err)
		report.Err = err
		return nil, report
	}
	report.Inserted = len(ids)
	return ids, report
}
