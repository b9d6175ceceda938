package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"cuotas/internal/amqp"
	"cuotas/internal/core"
	mirrormem "cuotas/internal/mirror/memory"
	"cuotas/internal/storage"
)

// fakeSource is a minimal PaymentSource for worker tests.
type fakeSource struct {
	payments  map[int64]core.PaymentWithMember
	mirrored  map[int64]bool
	errors    map[int64]string
	appendErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		payments: make(map[int64]core.PaymentWithMember),
		mirrored: make(map[int64]bool),
		errors:   make(map[int64]string),
	}
}

func (f *fakeSource) add(id int64, name string, month core.Month) {
	f.payments[id] = core.PaymentWithMember{
		Payment: core.Payment{
			ID:         id,
			MemberID:   1,
			Month:      month,
			Amount:     core.Money{Cents: 400000},
			RecordedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		MemberName: name,
	}
}

func (f *fakeSource) GetPayment(_ context.Context, id int64) (core.PaymentWithMember, error) {
	p, ok := f.payments[id]
	if !ok {
		return core.PaymentWithMember{}, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeSource) ListUnmirroredPayments(_ context.Context, limit int) ([]storage.PendingMirrorPayment, error) {
	var out []storage.PendingMirrorPayment
	for id, p := range f.payments {
		if !f.mirrored[id] {
			out = append(out, storage.PendingMirrorPayment{ID: id, RecordedAt: p.RecordedAt})
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSource) MarkMirrored(_ context.Context, id int64) error {
	f.mirrored[id] = true
	return nil
}

func (f *fakeSource) MarkMirrorError(_ context.Context, id int64, msg string) error {
	f.errors[id] = msg
	return nil
}

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	source.add(1, "Ana", "2026-01")
	book := mirrormem.New()
	w := NewMirrorWorker(source, book, book, 10)

	if err := w.HandleMessage(ctx, amqp.NewReceiptSyncMessage(1)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !book.Has(1) {
		t.Fatalf("receipt not in book")
	}
	if !source.mirrored[1] {
		t.Fatalf("payment not marked mirrored")
	}
}

func TestHandleSyncMissingPaymentIsSkipped(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	book := mirrormem.New()
	w := NewMirrorWorker(source, book, book, 10)

	// Payment deleted before the worker got to it: ack, don't requeue.
	if err := w.HandleMessage(ctx, amqp.NewReceiptSyncMessage(99)); err != nil {
		t.Fatalf("expected skip, got %v", err)
	}
	if book.Len() != 0 {
		t.Fatalf("book should stay empty")
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	source.add(1, "Ana", "2026-01")
	book := mirrormem.New()
	w := NewMirrorWorker(source, book, book, 10)

	if err := w.HandleMessage(ctx, amqp.NewReceiptSyncMessage(1)); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := w.HandleMessage(ctx, amqp.NewReceiptDeleteMessage(1)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if book.Has(1) {
		t.Fatalf("receipt still in book after delete")
	}
	// Idempotent: deleting again is fine.
	if err := w.HandleMessage(ctx, amqp.NewReceiptDeleteMessage(1)); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestHandleUnknownOperation(t *testing.T) {
	ctx := context.Background()
	w := NewMirrorWorker(newFakeSource(), mirrormem.New(), nil, 10)

	msg := &amqp.ReceiptSyncMessage{PaymentID: 1, Operation: "compact"}
	if err := w.HandleMessage(ctx, msg); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

func TestCatchUpMirrorsPending(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	source.add(1, "Ana", "2026-01")
	source.add(2, "Beto", "2026-01")
	source.mirrored[2] = true // already done
	book := mirrormem.New()
	w := NewMirrorWorker(source, book, book, 10)

	n, err := w.CatchUp(ctx)
	if err != nil {
		t.Fatalf("catch up: %v", err)
	}
	if n != 1 {
		t.Fatalf("mirrored %d, want 1", n)
	}
	if !book.Has(1) {
		t.Fatalf("pending payment not mirrored")
	}
}

type failingAppender struct{ err error }

func (f failingAppender) AppendReceipt(context.Context, core.PaymentWithMember) (string, error) {
	return "", f.err
}

func TestMirrorErrorIsRecorded(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	source.add(1, "Ana", "2026-01")
	w := NewMirrorWorker(source, failingAppender{err: errors.New("quota exceeded")}, nil, 10)

	if err := w.HandleMessage(ctx, amqp.NewReceiptSyncMessage(1)); err == nil {
		t.Fatalf("expected error from failing appender")
	}
	if source.errors[1] != "quota exceeded" {
		t.Fatalf("mirror error not recorded: %q", source.errors[1])
	}
	if source.mirrored[1] {
		t.Fatalf("payment wrongly marked mirrored")
	}
}
