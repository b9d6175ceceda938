package services

import (
	"context"

	"cuotas/internal/core"
)

// Store is the durable-state port the ledger services run against. The
// SQLite repository is the production implementation; the memory store backs
// the memory backend and the service tests.
//
// InsertPayment must be atomic with respect to the (member, month)
// uniqueness invariant: the implementation's own constraint is the final
// authority, and a violation surfaces as core.ErrDuplicatePayment.
type Store interface {
	// Members
	CreateMember(ctx context.Context, name string, group core.Group) (core.Member, error)
	UpdateMember(ctx context.Context, id int64, name string, group core.Group) error
	SetMemberActive(ctx context.Context, id int64, active bool) error
	GetMember(ctx context.Context, id int64) (core.Member, error)
	ListMembers(ctx context.Context, activeOnly bool) ([]core.Member, error)

	// Fee schedule
	GetFee(ctx context.Context, month core.Month) (core.FeeEntry, error)
	UpsertFee(ctx context.Context, entry core.FeeEntry) error
	ListFees(ctx context.Context) ([]core.FeeEntry, error)

	// Payments
	InsertPayment(ctx context.Context, p core.Payment) (core.Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	GetPayment(ctx context.Context, id int64) (core.PaymentWithMember, error)
	ListPayments(ctx context.Context) ([]core.PaymentWithMember, error)
	ListPaymentsForMember(ctx context.Context, memberID int64) ([]core.Payment, error)
}

// ReceiptPublisher is the async hand-off to the receipt mirror pipeline.
// Publishing is best-effort: a failed publish never fails the write that
// triggered it.
type ReceiptPublisher interface {
	PublishReceiptSync(ctx context.Context, paymentID int64) error
	PublishReceiptDelete(ctx context.Context, paymentID int64) error
}
