package core

import (
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in   string
		want Month
		ok   bool
	}{
		{"2026-01", "2026-01", true},
		{"2026-12", "2026-12", true},
		{"2026-13", "", false},
		{"2026-00", "", false},
		{"2026-1", "", false},
		{"january", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseMonth(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got (%q, %v), want %q", i, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d: expected error for %q", i, tc.in)
		}
	}
}

func TestMonthOrdering(t *testing.T) {
	// Lexicographic comparison of YYYY-MM must match chronology.
	if !Month("2026-02").Before("2026-10") {
		t.Fatalf("2026-02 should sort before 2026-10")
	}
	if Month("2026-10").Before("2026-02") {
		t.Fatalf("2026-10 should not sort before 2026-02")
	}
	if MonthOf(time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)) != "2026-07" {
		t.Fatalf("MonthOf mid-July should be 2026-07")
	}
}

func TestParseGroup(t *testing.T) {
	cases := []struct {
		in   string
		want Group
	}{
		{"pack", Pack},
		{"Pack", Pack},
		{"  troop ", Troop},
		{"senior-troop", SeniorTroop},
		{"crew", Crew},
		{"", Troop},         // absent defaults to Troop
		{"rovers", Troop},   // unrecognized defaults to Troop
		{"SENIOR-TROOP", SeniorTroop},
	}
	for i, tc := range cases {
		if got := ParseGroup(tc.in); got != tc.want {
			t.Fatalf("case %d: ParseGroup(%q) = %q, want %q", i, tc.in, got, tc.want)
		}
	}
}

func TestGroupOrder(t *testing.T) {
	groups := Groups()
	for i := 1; i < len(groups); i++ {
		if groups[i-1].Order() >= groups[i].Order() {
			t.Fatalf("groups out of panel order at %d: %v", i, groups)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -500}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Ana Torres"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []string{"", "   ", "\t\n"}
	for i, name := range bads {
		if err := ValidateName(name); err != ErrInvalidName {
			t.Fatalf("case %d: expected ErrInvalidName, got %v", i, err)
		}
	}
}

func TestMemberValidate(t *testing.T) {
	good := Member{Name: "Ana", Group: Troop, Active: true}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Member{
		{Name: "", Group: Troop},
		{Name: "Ana", Group: Group("lodge")},
	}
	for i, m := range bads {
		if err := m.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{MemberID: 1, Month: "2026-01", Amount: Money{Cents: 400000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Payment{
		{MemberID: 0, Month: "2026-01", Amount: Money{Cents: 1}},
		{MemberID: 1, Month: "nope", Amount: Money{Cents: 1}},
		{MemberID: 1, Month: "2026-01", Amount: Money{Cents: 0}},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
