// Package worker mirrors newly created records into the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hse/internal/amqp"
	"hse/internal/core"
	applog "hse/internal/log"
	"hse/internal/records"
	"hse/internal/sheets"
)

// Consumer delivers records-created messages until ctx is cancelled.
// *amqp.Client satisfies it.
type Consumer interface {
	ConsumeRecordCreated(ctx context.Context, handler func(context.Context, *amqp.RecordCreatedMessage) error) error
}

// SyncWorker reads the announced rows back from the store and appends
// them to the matching mirror tab.
type SyncWorker struct {
	store  records.RecordGetter
	mirror sheets.Mirror
	logger *applog.Logger

	mu      sync.Mutex
	headers map[string]bool // tabs known to carry a header row
}

func NewSyncWorker(store records.RecordGetter, mirror sheets.Mirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SyncWorker{
		store:   store,
		mirror:  mirror,
		logger:  logger.WithComponent(applog.ComponentWorker),
		headers: make(map[string]bool),
	}
}

// Run consumes messages until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Sync worker started")
	err := c.ConsumeRecordCreated(ctx, w.HandleRecordCreated)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleRecordCreated mirrors one message. Ids that no longer exist are
// skipped. Unknown kinds and writes the spreadsheet rejects are returned
// as amqp.Permanent so the message is dropped; any other failure is
// returned plain so the message is redelivered.
func (w *SyncWorker) HandleRecordCreated(ctx context.Context, msg *amqp.RecordCreatedMessage) error {
	err := w.handle(ctx, msg)
	if errors.Is(err, sheets.ErrRejected) {
		return amqp.Permanent(err)
	}
	return err
}

func (w *SyncWorker) handle(ctx context.Context, msg *amqp.RecordCreatedMessage) error {
	tab, err := sheets.Tab(msg.Kind)
	if err != nil {
		return amqp.Permanent(err)
	}

	rows := make([][]any, 0, len(msg.IDs))
	for _, id := range msg.IDs {
		row, err := w.row(ctx, msg.Kind, id)
		if errors.Is(err, core.ErrNotFound) {
			w.logger.WarnContext(ctx, "Record gone before sync, skipping",
				applog.FieldKind, string(msg.Kind),
				"id", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s %d: %w", msg.Kind, id, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := w.ensureHeader(ctx, tab); err != nil {
		return err
	}
	ref, err := w.mirror.AppendRows(ctx, tab, rows)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	w.logger.InfoContext(ctx, "Synced records",
		applog.FieldOperation, applog.OpSync,
		applog.FieldKind, string(msg.Kind),
		applog.FieldCount, len(rows),
		applog.FieldSource, msg.Source,
		"sheets_ref", ref)
	return nil
}

func (w *SyncWorker) row(ctx context.Context, kind core.RecordKind, id int64) ([]any, error) {
	switch kind {
	case core.KindIncident:
		i, err := w.store.GetIncident(ctx, id)
		if err != nil {
			return nil, err
		}
		return sheets.IncidentRow(i), nil
	case core.KindInspection:
		i, err := w.store.GetInspection(ctx, id)
		if err != nil {
			return nil, err
		}
		return sheets.InspectionRow(i), nil
	case core.KindTraining:
		t, err := w.store.GetTrainingSession(ctx, id)
		if err != nil {
			return nil, err
		}
		return sheets.TrainingRow(t), nil
	}
	return nil, fmt.Errorf("unknown record kind %q", kind)
}

// ensureHeader writes the header row into an empty tab, once per process.
func (w *SyncWorker) ensureHeader(ctx context.Context, tab string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.headers[tab] {
		return nil
	}

	existing, err := w.mirror.ReadHeader(ctx, tab)
	if err != nil {
		return fmt.Errorf("read %s header: %w", tab, err)
	}
	if len(existing) == 0 {
		if _, err := w.mirror.AppendRows(ctx, tab, [][]any{sheets.Header(tab)}); err != nil {
			return fmt.Errorf("write %s header: %w", tab, err)
		}
		w.logger.InfoContext(ctx, "Wrote header row", applog.FieldTable, tab)
	}
	w.headers[tab] = true
	return nil
}
