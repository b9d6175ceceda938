package services

import (
	"context"
	"errors"
	"testing"

	"cuotas/internal/core"
	"cuotas/internal/storage/memory"
)

func TestSnapshotGroupsAndFilter(t *testing.T) {
	ctx := context.Background()
	_, dir, schedule, ledger, query := newTestLedger(t)

	schedule.Set(ctx, "2026-01", core.Money{Cents: 400000})
	schedule.Set(ctx, "2026-02", core.Money{Cents: 400000})

	pack, _ := dir.Add(ctx, "Beto", core.Pack)
	troop, _ := dir.Add(ctx, "Ana", core.Troop)
	inactive, _ := dir.Add(ctx, "Viejo", core.Troop)
	dir.SetActive(ctx, inactive.ID, false)

	ledger.Record(ctx, pack.ID, "2026-01")
	ledger.Record(ctx, troop.ID, "2026-02")

	snap, err := query.Snapshot(ctx, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if len(snap.Months) != 2 || snap.Months[0] != "2026-01" || snap.Months[1] != "2026-02" {
		t.Fatalf("months = %v", snap.Months)
	}
	if len(snap.Groups[core.Pack]) != 1 || len(snap.Groups[core.Troop]) != 1 {
		t.Fatalf("group rows = %v", snap.Groups)
	}

	row := snap.Groups[core.Pack][0]
	if !row.Paid["2026-01"] || row.Paid["2026-02"] {
		t.Fatalf("pack paid flags = %v", row.Paid)
	}
	if row.Balance.Cents != 400000 {
		t.Fatalf("pack balance = %d, want 400000", row.Balance.Cents)
	}

	// Inactive members stay off the panel but keep their history.
	for _, rows := range snap.Groups {
		for _, r := range rows {
			if r.Member.ID == inactive.ID {
				t.Fatalf("inactive member on panel: %+v", r)
			}
		}
	}

	filtered, err := query.Snapshot(ctx, core.Pack)
	if err != nil {
		t.Fatalf("filtered snapshot: %v", err)
	}
	if len(filtered.Groups) != 1 || len(filtered.Groups[core.Pack]) != 1 {
		t.Fatalf("group filter leaked rows: %v", filtered.Groups)
	}
}

func TestOutstandingBalanceUnknownMember(t *testing.T) {
	ctx := context.Background()
	query := NewQueryEngine(memory.New())

	if _, err := query.OutstandingBalance(ctx, 42); !errors.Is(err, core.ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}
}

func TestSnapshotChargesFullSchedule(t *testing.T) {
	// Members are charged for every scheduled month regardless of when
	// they joined; the panel balance must agree with OutstandingBalance.
	ctx := context.Background()
	_, dir, schedule, _, query := newTestLedger(t)

	schedule.Set(ctx, "2026-01", core.Money{Cents: 400000})
	schedule.Set(ctx, "2026-07", core.Money{Cents: 500000})

	m, _ := dir.Add(ctx, "Recien Llegado", core.Crew)

	balance, err := query.OutstandingBalance(ctx, m.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cents != 900000 {
		t.Fatalf("balance = %d, want 900000", balance.Cents)
	}

	snap, err := query.Snapshot(ctx, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got := snap.Groups[core.Crew][0].Balance.Cents; got != balance.Cents {
		t.Fatalf("panel balance %d != query balance %d", got, balance.Cents)
	}
}
