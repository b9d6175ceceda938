package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cuotas/internal/amqp"
	"cuotas/internal/core"
	"cuotas/internal/mirror"
	"cuotas/internal/storage"
)

// PaymentSource is the slice of the storage layer the mirror worker needs.
type PaymentSource interface {
	GetPayment(ctx context.Context, id int64) (core.PaymentWithMember, error)
	ListUnmirroredPayments(ctx context.Context, limit int) ([]storage.PendingMirrorPayment, error)
	MarkMirrored(ctx context.Context, id int64) error
	MarkMirrorError(ctx context.Context, id int64, msg string) error
}

// MirrorWorker reconciles the local payment ledger with the shared receipt
// book. Queue messages drive the common path; a periodic catch-up batch
// sweeps payments the queue missed (broker down, worker restarted).
type MirrorWorker struct {
	source    PaymentSource
	appender  mirror.ReceiptAppender
	remover   mirror.ReceiptRemover
	batchSize int
}

func NewMirrorWorker(source PaymentSource, appender mirror.ReceiptAppender, remover mirror.ReceiptRemover, batchSize int) *MirrorWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &MirrorWorker{
		source:    source,
		appender:  appender,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleMessage processes one receipt queue message. Returning an error
// nacks the delivery.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.ReceiptSyncMessage) error {
	switch msg.Operation {
	case amqp.OpSync:
		return w.mirrorPayment(ctx, msg.PaymentID)
	case amqp.OpDelete:
		if w.remover == nil {
			slog.WarnContext(ctx, "No remover configured, skipping delete",
				"payment_id", msg.PaymentID)
			return nil
		}
		if err := w.remover.RemoveReceipt(ctx, msg.PaymentID); err != nil {
			return fmt.Errorf("remove receipt %d: %w", msg.PaymentID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown operation: %s", msg.Operation)
	}
}

func (w *MirrorWorker) mirrorPayment(ctx context.Context, paymentID int64) error {
	payment, err := w.source.GetPayment(ctx, paymentID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between record and mirror; nothing to append.
		slog.WarnContext(ctx, "Payment gone before mirroring, skipping",
			"payment_id", paymentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get payment %d: %w", paymentID, err)
	}

	ref, err := w.appender.AppendReceipt(ctx, payment)
	if err != nil {
		if markErr := w.source.MarkMirrorError(ctx, paymentID, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to record mirror error",
				"payment_id", paymentID, "error", markErr)
		}
		return fmt.Errorf("append receipt %d: %w", paymentID, err)
	}

	if err := w.source.MarkMirrored(ctx, paymentID); err != nil {
		// The append succeeded; the catch-up batch would duplicate the row,
		// so this is worth surfacing loudly.
		slog.ErrorContext(ctx, "Failed to mark payment mirrored",
			"payment_id", paymentID, "error", err)
		return fmt.Errorf("mark mirrored %d: %w", paymentID, err)
	}

	slog.InfoContext(ctx, "Mirrored receipt",
		"payment_id", paymentID,
		"sheet_ref", ref)
	return nil
}

// CatchUp mirrors one batch of payments that never made it through the
// queue. Returns how many were mirrored.
func (w *MirrorWorker) CatchUp(ctx context.Context) (int, error) {
	pending, err := w.source.ListUnmirroredPayments(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unmirrored payments: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Catch-up batch started", "pending", len(pending))

	mirrored := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return mirrored, ctx.Err()
		}
		if err := w.mirrorPayment(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Catch-up mirror failed",
				"payment_id", p.ID, "error", err)
			continue
		}
		mirrored++
	}

	return mirrored, nil
}

// RunCatchUpLoop runs CatchUp on a fixed interval until ctx is done. An
// immediate pass runs at startup to drain anything left from a crash.
func (w *MirrorWorker) RunCatchUpLoop(ctx context.Context, interval time.Duration) error {
	if _, err := w.CatchUp(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Initial catch-up failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.CatchUp(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.ErrorContext(ctx, "Catch-up batch failed", "error", err)
			}
		}
	}
}
