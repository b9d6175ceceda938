// Package memory holds an in-memory dues store. It backs the "memory"
// backend for local development and doubles as the test double for the
// service layer; behavior mirrors the SQLite repository, including the
// (member, month) uniqueness mapping to core.ErrDuplicatePayment.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuotas/internal/core"
)

type Store struct {
	mu        sync.Mutex
	members   map[int64]core.Member
	fees      map[core.Month]core.Money
	payments  map[int64]core.Payment
	nextMemID int64
	nextPayID int64
}

func New() *Store {
	return &Store{
		members:   make(map[int64]core.Member),
		fees:      make(map[core.Month]core.Money),
		payments:  make(map[int64]core.Payment),
		nextMemID: 1,
		nextPayID: 1,
	}
}

// NewSeeded returns a store preloaded with the standard dues calendar: the
// twelve months of 2026 in two tiers, matching the SQLite seed migration.
func NewSeeded() *Store {
	s := New()
	for m := 1; m <= 12; m++ {
		month := core.Month(fmt.Sprintf("2026-%02d", m))
		amount := int64(400000) // Jan-Jun tier
		if m >= 7 {
			amount = 500000 // Jul-Dec tier
		}
		s.fees[month] = core.Money{Cents: amount}
	}
	return s
}

func (s *Store) CreateMember(_ context.Context, name string, group core.Group) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := core.Member{ID: s.nextMemID, Name: name, Group: group, Active: true}
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}
	s.members[m.ID] = m
	s.nextMemID++
	return m, nil
}

func (s *Store) UpdateMember(_ context.Context, id int64, name string, group core.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return core.ErrNotFound
	}
	m.Name = name
	m.Group = group
	if err := m.Validate(); err != nil {
		return err
	}
	s.members[id] = m
	return nil
}

func (s *Store) SetMemberActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return core.ErrNotFound
	}
	m.Active = active
	s.members[id] = m
	return nil
}

func (s *Store) GetMember(_ context.Context, id int64) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return core.Member{}, core.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMembers(_ context.Context, activeOnly bool) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Member, 0, len(s.members))
	for _, m := range s.members {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group.Order() != out[j].Group.Order() {
			return out[i].Group.Order() < out[j].Group.Order()
		}
		if c := strings.Compare(out[i].Name, out[j].Name); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetFee(_ context.Context, month core.Month) (core.FeeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, ok := s.fees[month]
	if !ok {
		return core.FeeEntry{}, core.ErrNotFound
	}
	return core.FeeEntry{Month: month, Amount: amount}, nil
}

func (s *Store) UpsertFee(_ context.Context, entry core.FeeEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees[entry.Month] = entry.Amount
	return nil
}

func (s *Store) ListFees(_ context.Context) ([]core.FeeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.FeeEntry, 0, len(s.fees))
	for month, amount := range s.fees {
		out = append(out, core.FeeEntry{Month: month, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *Store) InsertPayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.payments {
		if existing.MemberID == p.MemberID && existing.Month == p.Month {
			return core.Payment{}, core.ErrDuplicatePayment
		}
	}

	p.ID = s.nextPayID
	s.nextPayID++
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) DeletePayment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payments, id) // idempotent
	return nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (core.PaymentWithMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return core.PaymentWithMember{}, core.ErrNotFound
	}
	return s.join(p), nil
}

func (s *Store) ListPayments(_ context.Context) ([]core.PaymentWithMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.PaymentWithMember, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, s.join(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListPaymentsForMember(_ context.Context, memberID int64) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Payment
	for _, p := range s.payments {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// join must be called with the mutex held.
func (s *Store) join(p core.Payment) core.PaymentWithMember {
	name := ""
	if m, ok := s.members[p.MemberID]; ok {
		name = m.Name
	}
	return core.PaymentWithMember{Payment: p, MemberName: name}
}
