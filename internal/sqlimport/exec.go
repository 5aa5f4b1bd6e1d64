package sqlimport

import (
	"context"
	"errors"
	"log/slog"

	applog "hse/internal/log"
	"hse/internal/records"
)

// StatementResult is the outcome of one statement.
type StatementResult struct {
	Statement string
	Err       error
}

// Rejected reports whether the guard refused the statement.
func (r StatementResult) Rejected() bool {
	return errors.Is(r.Err, ErrRejected)
}

// ExecReport lists every statement with its outcome, in input order.
type ExecReport struct {
	Results []StatementResult
}

func (r *ExecReport) Executed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the statements that were rejected or errored.
func (r *ExecReport) Failed() []StatementResult {
	var out []StatementResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// ExecStatements screens and runs each statement in turn. A failing
// statement is logged and recorded; the rest still run.
func ExecStatements(ctx context.Context, exec records.SQLExecutor, guard *Guard, stmts []string) *ExecReport {
	report := &ExecReport{Results: make([]StatementResult, 0, len(stmts))}
	for _, stmt := range stmts {
		res := StatementResult{Statement: stmt}
		if err := ctx.Err(); err != nil {
			res.Err = err
		} else if err := guard.Check(stmt); err != nil {
			res.Err = err
			slog.WarnContext(ctx, "SQL statement rejected", "statement", stmt, "error", err)
		} else if err := exec.ExecSQL(ctx, stmt); err != nil {
			res.Err = err
			slog.ErrorContext(ctx, "SQL statement failed", "statement", stmt, "error", err)
		}
		report.Results = append(report.Results, res)
	}

	slog.InfoContext(ctx, "SQL import finished",
		applog.FieldComponent, applog.ComponentImport,
		applog.FieldOperation, applog.OpExecSQL,
		applog.FieldCount, len(stmts),
		"executed", report.Executed(),
		"failed", len(report.Failed()))
	return report
}
