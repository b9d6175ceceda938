package services

import (
	"context"
	"fmt"
	"log/slog"

	"cuotas/internal/core"
)

// FeeSchedule is the source of truth for "how much is owed for month M".
// Entries are seeded by migration and edited here; months are never removed.
type FeeSchedule struct {
	store Store
}

func NewFeeSchedule(store Store) *FeeSchedule {
	return &FeeSchedule{store: store}
}

// Get returns the fee amount for an exact month, core.ErrNotFound otherwise.
func (s *FeeSchedule) Get(ctx context.Context, month core.Month) (core.Money, error) {
	entry, err := s.store.GetFee(ctx, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("get fee for %s: %w", month, err)
	}
	return entry.Amount, nil
}

// Set upserts the amount for a month. Amounts must be positive; past
// payments keep their snapshotted amount regardless of later edits.
func (s *FeeSchedule) Set(ctx context.Context, month core.Month, amount core.Money) error {
	entry := core.FeeEntry{Month: month, Amount: amount}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertFee(ctx, entry); err != nil {
		return fmt.Errorf("set fee for %s: %w", month, err)
	}

	slog.InfoContext(ctx, "Fee schedule updated",
		"month", month.String(),
		"amount_cents", amount.Cents)
	return nil
}

// ListAll returns every schedule entry sorted by month, which for YYYY-MM
// keys is chronological order.
func (s *FeeSchedule) ListAll(ctx context.Context) ([]core.FeeEntry, error) {
	entries, err := s.store.ListFees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fee schedule: %w", err)
	}
	return entries, nil
}
