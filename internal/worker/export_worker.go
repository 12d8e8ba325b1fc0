// Package worker copies recorded expenses out to the external sheet. It is
// driven two ways: broker messages for the hot path, and a periodic sweep of
// unsynced rows to recover anything the broker dropped.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kharcha/internal/core"
	"kharcha/internal/events"
	"kharcha/internal/export"
	"kharcha/internal/storage"
)

// Store is the slice of the repository the worker needs.
type Store interface {
	GetExpenseByID(ctx context.Context, id string) (*core.Expense, error)
	ListUnsynced(ctx context.Context, limit int) ([]core.Expense, error)
	MarkSynced(ctx context.Context, id string) error
}

var _ Store = (*storage.Repository)(nil)

// ExportWorker exports expenses to an ExpenseWriter and records progress in
// the synced_at column.
type ExportWorker struct {
	store     Store
	writer    export.ExpenseWriter
	batchSize int
}

func NewExportWorker(store Store, writer export.ExpenseWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleCreated processes one expense.created message. The payload carries
// only the ID; the row is always re-read from storage so the export reflects
// the durable record.
func (w *ExportWorker) HandleCreated(ctx context.Context, msg *events.ExpenseCreated) error {
	expense, err := w.store.GetExpenseByID(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	return w.export(ctx, expense)
}

// ProcessUnsynced sweeps one batch of rows that never made it out, oldest
// first. Failures are logged and skipped so one bad row cannot stall the
// rest of the batch.
func (w *ExportWorker) ProcessUnsynced(ctx context.Context) error {
	pending, err := w.store.ListUnsynced(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unsynced expenses: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unsynced expenses", "count", len(pending))

	for i := range pending {
		if err := w.export(ctx, &pending[i]); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense",
				"id", pending[i].ID, "error", err)
			continue
		}
	}

	return nil
}

func (w *ExportWorker) export(ctx context.Context, e *core.Expense) error {
	ref, err := w.writer.Append(ctx, e)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkSynced(ctx, e.ID); err != nil {
		// The export itself worked; the sweep will retry and the writer may
		// produce a duplicate row, which is acceptable for a reporting copy.
		slog.ErrorContext(ctx, "Failed to mark expense synced", "id", e.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Exported expense",
		"id", e.ID,
		"sheet_ref", ref,
		"amount_paise", e.AmountPaise)
	return nil
}
