package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Pack        Group = "pack"
	Troop       Group = "troop"
	SeniorTroop Group = "senior-troop"
	Crew        Group = "crew"
)

type (
	// Group is the membership-stage classification ("cuadro") used to
	// section the panel view.
	Group string

	Money struct {
		Cents int64
	}

	Member struct {
		ID     int64
		Name   string
		Group  Group
		Active bool
	}

	// FeeEntry is one row of the fee schedule: what a member owes for a
	// given month.
	FeeEntry struct {
		Month  Month
		Amount Money
	}

	Payment struct {
		ID         int64
		MemberID   int64
		Month      Month
		Amount     Money // snapshot of the fee at record time, not a live reference
		RecordedAt time.Time
	}

	// PaymentWithMember is a payment joined with the paying member's name,
	// as shown in the administrative list view.
	PaymentWithMember struct {
		Payment
		MemberName string
	}

	// Receipt is the read-only projection handed to the external receipt
	// renderer.
	Receipt struct {
		PaymentID  int64
		MemberName string
		Month      Month
		Amount     Money
		RecordedAt time.Time
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUnknownMonth     = errors.New("unknown month")
	ErrUnknownMember    = errors.New("unknown member")
	ErrDuplicatePayment = errors.New("duplicate payment")
)

// Groups lists all groups in panel order.
func Groups() []Group {
	return []Group{Pack, Troop, SeniorTroop, Crew}
}

// ParseGroup maps free-form input to a Group. Unknown or empty input
// defaults to Troop, matching how legacy rows without a group column were
// backfilled.
func ParseGroup(s string) Group {
	switch Group(strings.ToLower(strings.TrimSpace(s))) {
	case Pack:
		return Pack
	case Troop:
		return Troop
	case SeniorTroop:
		return SeniorTroop
	case Crew:
		return Crew
	default:
		return Troop
	}
}

// Order returns the group's position in the panel, for (group, name) sorting.
func (g Group) Order() int {
	switch g {
	case Pack:
		return 0
	case Troop:
		return 1
	case SeniorTroop:
		return 2
	case Crew:
		return 3
	default:
		return 4
	}
}

func (g Group) String() string {
	return string(g)
}

// Label returns the display name used in templates.
func (g Group) Label() string {
	switch g {
	case Pack:
		return "Pack"
	case Troop:
		return "Troop"
	case SeniorTroop:
		return "Senior Troop"
	case Crew:
		return "Crew"
	default:
		return string(g)
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateName checks the directory naming rule shared by Add and Edit.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if len(name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (m Member) Validate() error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	switch m.Group {
	case Pack, Troop, SeniorTroop, Crew:
	default:
		return errors.New("invalid group")
	}
	return nil
}

func (f FeeEntry) Validate() error {
	if err := f.Month.Validate(); err != nil {
		return err
	}
	return f.Amount.Validate()
}

func (p Payment) Validate() error {
	if p.MemberID <= 0 {
		return ErrUnknownMember
	}
	if err := p.Month.Validate(); err != nil {
		return err
	}
	return p.Amount.Validate()
}
