// Package worker mirrors recorded payments from local storage to the
// bursar's cash book, driven by AMQP messages with a periodic backup scan.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"madrasa/internal/amqp"
	"madrasa/internal/cashbook"
	"madrasa/internal/storage"
)

// SyncStorage is the slice of the SQLite repository the worker needs.
type SyncStorage interface {
	GetPaymentDetail(ctx context.Context, id string) (storage.PaymentDetail, error)
	GetPendingSyncPayments(ctx context.Context, limit int) ([]storage.PendingSyncPayment, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// LedgerWorker drains the payment sync queue into the cash book.
type LedgerWorker struct {
	storage   SyncStorage
	book      cashbook.Appender
	batchSize int
}

func NewLedgerWorker(storage SyncStorage, book cashbook.Appender, batchSize int) *LedgerWorker {
	return &LedgerWorker{
		storage:   storage,
		book:      book,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single payment sync message from AMQP.
func (w *LedgerWorker) HandleSyncMessage(ctx context.Context, msg *amqp.PaymentSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "payment_id", msg.PaymentID)

	if err := w.syncPayment(ctx, msg.PaymentID); err != nil {
		return fmt.Errorf("sync payment %s: %w", msg.PaymentID, err)
	}
	return nil
}

// ProcessPendingPayments mirrors any payments still pending. This is the
// backup mechanism in case AMQP messages are lost.
func (w *LedgerWorker) ProcessPendingPayments(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncPayments(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending payments: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending payments", "count", len(pending))

	for _, p := range pending {
		if err := w.syncPayment(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync payment", "id", p.ID, "error", err)
		}
	}

	return nil
}

// StartupSyncCheck mirrors payments that accumulated while the worker was
// down. Runs once at startup with a larger batch.
func (w *LedgerWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncPayments(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending payments for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending payments found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending payments on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, p := range pending {
		if err := w.syncPayment(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync payment during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *LedgerWorker) syncPayment(ctx context.Context, id string) error {
	detail, err := w.storage.GetPaymentDetail(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("get payment detail: %w", err)
	}

	entry := cashbook.Entry{
		StudentName: detail.StudentName,
		AdmissionNo: detail.AdmissionNo,
		Period:      detail.Period,
		Amount:      detail.Payment.Amount,
		Method:      detail.Payment.Method,
		Reference:   detail.Payment.Reference,
		RecordedAt:  detail.Payment.RecordedAt,
	}

	ref, err := w.book.Append(ctx, entry)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to cash book: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The append itself worked, so don't fail the message.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Payment synced to cash book",
		"id", id,
		"student", detail.StudentName,
		"cashbook_ref", ref)

	return nil
}
