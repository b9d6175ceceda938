package services

import (
	"context"
	"errors"
	"fmt"

	"cuotas/internal/core"
)

// QueryEngine derives the panel's read models from the schedule, the
// directory, and the ledger. All of it is plain cross-product computation
// over organizational-scale data; nothing here caches.
type QueryEngine struct {
	store Store
}

func NewQueryEngine(store Store) *QueryEngine {
	return &QueryEngine{store: store}
}

// PanelRow is one active member with their per-month paid flags.
type PanelRow struct {
	Member core.Member
	Paid   map[core.Month]bool
	// Balance is the member's outstanding amount over the whole schedule.
	Balance core.Money
}

// PanelSnapshot is the full paid/unpaid matrix the panel renders: months in
// schedule order, rows grouped by Group and sorted by (group, name).
type PanelSnapshot struct {
	Months []core.Month
	Groups map[core.Group][]PanelRow
}

// Snapshot computes the panel matrix for every active member. Pass an empty
// filter for all groups.
func (q *QueryEngine) Snapshot(ctx context.Context, groupFilter core.Group) (PanelSnapshot, error) {
	fees, err := q.store.ListFees(ctx)
	if err != nil {
		return PanelSnapshot{}, fmt.Errorf("list fee schedule: %w", err)
	}

	members, err := q.store.ListMembers(ctx, true)
	if err != nil {
		return PanelSnapshot{}, fmt.Errorf("list active members: %w", err)
	}

	snap := PanelSnapshot{
		Months: make([]core.Month, 0, len(fees)),
		Groups: make(map[core.Group][]PanelRow),
	}
	var scheduleTotal int64
	for _, f := range fees {
		snap.Months = append(snap.Months, f.Month)
		scheduleTotal += f.Amount.Cents
	}

	for _, m := range members {
		if groupFilter != "" && m.Group != groupFilter {
			continue
		}

		payments, err := q.store.ListPaymentsForMember(ctx, m.ID)
		if err != nil {
			return PanelSnapshot{}, fmt.Errorf("list payments for member %d: %w", m.ID, err)
		}

		paid := make(map[core.Month]bool, len(payments))
		var paidTotal int64
		for _, p := range payments {
			paid[p.Month] = true
			paidTotal += p.Amount.Cents
		}

		snap.Groups[m.Group] = append(snap.Groups[m.Group], PanelRow{
			Member:  m,
			Paid:    paid,
			Balance: core.Money{Cents: scheduleTotal - paidTotal},
		})
	}

	return snap, nil
}

// OutstandingBalance is sum(schedule amounts) minus sum(the member's
// recorded payments). Every scheduled month is charged regardless of when
// the member joined; that is the inherited policy, not an accident here.
func (q *QueryEngine) OutstandingBalance(ctx context.Context, memberID int64) (core.Money, error) {
	if _, err := q.store.GetMember(ctx, memberID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Money{}, core.ErrUnknownMember
		}
		return core.Money{}, fmt.Errorf("check member %d: %w", memberID, err)
	}

	fees, err := q.store.ListFees(ctx)
	if err != nil {
		return core.Money{}, fmt.Errorf("list fee schedule: %w", err)
	}
	var owed int64
	for _, f := range fees {
		owed += f.Amount.Cents
	}

	payments, err := q.store.ListPaymentsForMember(ctx, memberID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list payments for member %d: %w", memberID, err)
	}
	for _, p := range payments {
		owed -= p.Amount.Cents
	}

	return core.Money{Cents: owed}, nil
}

// ReceiptData projects one payment into the shape the external receipt
// renderer consumes.
func (q *QueryEngine) ReceiptData(ctx context.Context, paymentID int64) (core.Receipt, error) {
	payment, err := q.store.GetPayment(ctx, paymentID)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("get payment %d: %w", paymentID, err)
	}
	return core.Receipt{
		PaymentID:  payment.ID,
		MemberName: payment.MemberName,
		Month:      payment.Month,
		Amount:     payment.Amount,
		RecordedAt: payment.RecordedAt,
	}, nil
}
