package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hse/internal/auth"
	"hse/internal/backend"
	"hse/internal/config"
	"hse/internal/forms"
	"hse/internal/importer"
	"hse/internal/sqlimport"
	"hse/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(_ context.Context, cmd *cobra.Command, _ []string, b *backend.BackendResult) error {
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", b.Dialect)
			return nil
		}),
	}
}

func newUserCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage sign-in accounts",
	}

	var email, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, _ []string, b *backend.BackendResult) error {
			form, fe := forms.ValidateAccount(email, password)
			if fe != nil {
				return fe
			}
			u, err := auth.NewAccounts(b.Backend).Create(ctx, form.Email, form.Password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s\n", u.Email)
			return nil
		}),
	}
	add.Flags().StringVar(&email, "email", "", "account email")
	add.Flags().StringVar(&password, "password", "", "account password (8 to 72 characters)")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("password")

	user.AddCommand(add)
	return user
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <workbook>",
		Short: "Import an .xlsx or .xls workbook",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, args []string, b *backend.BackendResult) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := importer.New(b.Backend, b.Backend).Import(ctx, f, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			printImportReport(cmd.OutOrStdout(), report)
			if report.Inserted() == 0 && len(report.Failed()) > 0 {
				return errors.New("no rows were imported")
			}
			return nil
		}),
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled sample dataset",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, _ []string, b *backend.BackendResult) error {
			report, err := sqlimport.Seed(ctx, b.Backend, importer.New(b.Backend, b.Backend))
			if err != nil {
				return err
			}
			printImportReport(cmd.OutOrStdout(), report)
			if len(report.Failed()) > 0 {
				return errors.New("sample dataset only partly loaded")
			}
			return nil
		}),
	}
}

func newSQLCmd() *cobra.Command {
	sqlCmd := &cobra.Command{
		Use:   "sql",
		Short: "Generate or run sample SQL scripts",
	}

	var dialect string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Print the sample dataset as INSERT statements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dialect == "" {
				dialect = defaultDialect()
			}
			d, err := storage.ParseDialect(dialect)
			if err != nil {
				return err
			}
			data, err := sqlimport.LoadSample()
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), sqlimport.GenerateSQL(d, data))
			return err
		},
	}
	generate.Flags().StringVar(&dialect, "dialect", "", "sqlite or postgres (defaults to DATA_BACKEND)")

	exec := &cobra.Command{
		Use:   "exec <file.sql>",
		Short: "Screen and run a SQL script against the store",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, args []string, b *backend.BackendResult) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			stmts := sqlimport.SplitStatements(string(text))
			report := sqlimport.ExecStatements(ctx, b.Backend, sqlimport.NewGuard(), stmts)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d of %d statements ran\n", report.Executed(), len(stmts))
			failed := report.Failed()
			for _, f := range failed {
				fmt.Fprintf(out, "  failed: %v\n", f.Err)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d statements failed", len(failed))
			}
			return nil
		}),
	}

	sqlCmd.AddCommand(generate, exec)
	return sqlCmd
}

// defaultDialect follows DATA_BACKEND; the memory store shares the
// sqlite dialect.
func defaultDialect() string {
	if config.Load().DataBackend == config.BackendPostgres {
		return string(storage.Postgres)
	}
	return string(storage.SQLite)
}

func printImportReport(w io.Writer, r *importer.Report) {
	fmt.Fprintf(w, "%s: %d rows in %d sheets, %d inserted\n", r.Filename, r.Rows, r.Sheets, r.Inserted())
	for _, t := range r.Tables {
		if t.Err != nil {
			fmt.Fprintf(w, "  %s: %d parsed, failed: %v\n", t.Table, t.Parsed, t.Err)
			continue
		}
		fmt.Fprintf(w, "  %s: %d inserted\n", t.Table, t.Inserted)
	}
	if r.Unclassified > 0 {
		fmt.Fprintf(w, "  %d rows could not be classified\n", r.Unclassified)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}
