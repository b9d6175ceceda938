package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cuotas/internal/core"
)

// PaymentLedger records and removes payments. It owns the only invariant
// worth protecting in this system: at most one payment per (member, month).
// The check lives in the store's uniqueness constraint, not here; Record
// only translates the conflict into core.ErrDuplicatePayment so it stays
// correct when two operators submit the same payment at once.
type PaymentLedger struct {
	store     Store
	schedule  *FeeSchedule
	publisher ReceiptPublisher // nil when the mirror pipeline is disabled
	now       func() time.Time
}

func NewPaymentLedger(store Store, schedule *FeeSchedule, publisher ReceiptPublisher) *PaymentLedger {
	return &PaymentLedger{
		store:     store,
		schedule:  schedule,
		publisher: publisher,
		now:       time.Now,
	}
}

// Record creates a payment for (memberID, month), snapshotting the fee
// amount from the schedule at insert time. Either the whole operation
// applies or nothing does.
func (l *PaymentLedger) Record(ctx context.Context, memberID int64, month core.Month) (core.Payment, error) {
	if err := month.Validate(); err != nil {
		return core.Payment{}, err
	}

	amount, err := l.schedule.Get(ctx, month)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Payment{}, core.ErrUnknownMonth
		}
		return core.Payment{}, err
	}

	if _, err := l.store.GetMember(ctx, memberID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Payment{}, core.ErrUnknownMember
		}
		return core.Payment{}, fmt.Errorf("check member %d: %w", memberID, err)
	}

	payment, err := l.store.InsertPayment(ctx, core.Payment{
		MemberID:   memberID,
		Month:      month,
		Amount:     amount,
		RecordedAt: l.now(),
	})
	if err != nil {
		// The store maps its UNIQUE violation to ErrDuplicatePayment.
		return core.Payment{}, fmt.Errorf("insert payment (member=%d, month=%s): %w", memberID, month, err)
	}

	slog.InfoContext(ctx, "Payment recorded",
		"payment_id", payment.ID,
		"member_id", memberID,
		"month", month.String(),
		"amount_cents", amount.Cents)

	if l.publisher != nil {
		if err := l.publisher.PublishReceiptSync(ctx, payment.ID); err != nil {
			// The payment is durable locally; the mirror catches up later.
			slog.ErrorContext(ctx, "Failed to publish receipt sync message",
				"payment_id", payment.ID, "error", err)
		}
	}

	return payment, nil
}

// Delete removes a payment. Idempotent: deleting an absent payment is
// administrative cleanup, not an error.
func (l *PaymentLedger) Delete(ctx context.Context, paymentID int64) error {
	if err := l.store.DeletePayment(ctx, paymentID); err != nil {
		return fmt.Errorf("delete payment %d: %w", paymentID, err)
	}

	slog.InfoContext(ctx, "Payment deleted", "payment_id", paymentID)

	if l.publisher != nil {
		if err := l.publisher.PublishReceiptDelete(ctx, paymentID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish receipt delete message",
				"payment_id", paymentID, "error", err)
		}
	}

	return nil
}

// ForMember returns the set of months the member has paid.
func (l *PaymentLedger) ForMember(ctx context.Context, memberID int64) (map[core.Month]bool, error) {
	payments, err := l.store.ListPaymentsForMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("list payments for member %d: %w", memberID, err)
	}
	months := make(map[core.Month]bool, len(payments))
	for _, p := range payments {
		months[p.Month] = true
	}
	return months, nil
}

// All returns every payment most-recent-first, joined with the paying
// member's name.
func (l *PaymentLedger) All(ctx context.Context) ([]core.PaymentWithMember, error) {
	payments, err := l.store.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// Get resolves a single payment with its member name.
func (l *PaymentLedger) Get(ctx context.Context, paymentID int64) (core.PaymentWithMember, error) {
	payment, err := l.store.GetPayment(ctx, paymentID)
	if err != nil {
		return core.PaymentWithMember{}, fmt.Errorf("get payment %d: %w", paymentID, err)
	}
	return payment, nil
}
