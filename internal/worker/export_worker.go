// Package worker moves submitted bills from the store to the accounting
// spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"billed/internal/amqp"
	"billed/internal/core"
	"billed/internal/export"
	"billed/internal/store"
)

// BillSource is what the worker needs from the store: single-bill reads
// plus the export bookkeeping.
type BillSource interface {
	store.BillReader
	store.ExportTracker
}

// ExportWorker exports bills row by row. It is driven by AMQP messages
// and by a periodic reconcile pass that catches lost messages.
type ExportWorker struct {
	bills     BillSource
	appender  export.RowAppender
	batchSize int
}

func NewExportWorker(bills BillSource, appender export.RowAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		bills:     bills,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleExportMessage loads the bill named by the message and appends it
// to the spreadsheet. Missing and draft bills are dropped without error
// so the queue does not loop on them.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.BillExportMessage) error {
	bill, err := w.bills.GetBill(ctx, msg.BillID)
	if errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Bill no longer exists, dropping export message", "bill_id", msg.BillID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get bill: %w", err)
	}

	if bill.Status == "" {
		// Draft opened by a proof upload: submission will publish again.
		slog.DebugContext(ctx, "Skipping draft bill", "bill_id", msg.BillID)
		return nil
	}

	return w.exportBill(ctx, bill)
}

// ProcessUnexported exports one batch of bills the queue missed. Bills
// that fail are left unmarked for the next pass.
func (w *ExportWorker) ProcessUnexported(ctx context.Context) error {
	pending, err := w.bills.ListUnexported(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported bills: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Reconciling unexported bills", "count", len(pending))

	for _, bill := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.exportBill(ctx, bill); err != nil {
			slog.ErrorContext(ctx, "Failed to export bill during reconcile",
				"bill_id", bill.ID, "error", err)
		}
	}
	return nil
}

func (w *ExportWorker) exportBill(ctx context.Context, bill core.Bill) error {
	ref, err := w.appender.AppendBill(ctx, bill)
	if err != nil {
		return fmt.Errorf("append bill %s: %w", bill.ID, err)
	}

	if err := w.bills.MarkExported(ctx, bill.ID); err != nil {
		// The row is written; an unmarked bill means a duplicate row on
		// the next pass, which accounting can spot. Surface it loudly.
		return fmt.Errorf("mark bill %s exported (row %s written): %w", bill.ID, ref, err)
	}

	slog.InfoContext(ctx, "Exported bill",
		"bill_id", bill.ID,
		"bill_name", bill.Name,
		"export_ref", ref)
	return nil
}
