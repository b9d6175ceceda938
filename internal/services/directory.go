package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cuotas/internal/core"
)

// ListFilter selects which members a directory listing returns.
type ListFilter int

const (
	ActiveOnly ListFilter = iota
	All
)

// MemberDirectory manages the roster. Members are only ever soft-deleted:
// payments reference them, so deactivation flips the Active flag and nothing
// else.
type MemberDirectory struct {
	store Store
}

func NewMemberDirectory(store Store) *MemberDirectory {
	return &MemberDirectory{store: store}
}

// Add creates a member with a fresh id, active by default.
func (d *MemberDirectory) Add(ctx context.Context, name string, group core.Group) (core.Member, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateName(name); err != nil {
		return core.Member{}, err
	}

	member, err := d.store.CreateMember(ctx, name, group)
	if err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}

	slog.InfoContext(ctx, "Member added",
		"member_id", member.ID,
		"group", member.Group.String())
	return member, nil
}

// Edit updates name and group. Fails with core.ErrNotFound for unknown ids
// and core.ErrInvalidName under the same rule as Add.
func (d *MemberDirectory) Edit(ctx context.Context, id int64, name string, group core.Group) error {
	name = strings.TrimSpace(name)
	if err := core.ValidateName(name); err != nil {
		return err
	}
	if err := d.store.UpdateMember(ctx, id, name, group); err != nil {
		return fmt.Errorf("edit member %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Member edited", "member_id", id, "group", group.String())
	return nil
}

// SetActive toggles the roster flag. Idempotent: setting the current state
// again is not an error.
func (d *MemberDirectory) SetActive(ctx context.Context, id int64, active bool) error {
	if err := d.store.SetMemberActive(ctx, id, active); err != nil {
		return fmt.Errorf("set member %d active=%t: %w", id, active, err)
	}

	slog.InfoContext(ctx, "Member status changed", "member_id", id, "active", active)
	return nil
}

// Get returns a single member by id.
func (d *MemberDirectory) Get(ctx context.Context, id int64) (core.Member, error) {
	member, err := d.store.GetMember(ctx, id)
	if err != nil {
		return core.Member{}, fmt.Errorf("get member %d: %w", id, err)
	}
	return member, nil
}

// List returns members sorted by (group, name) for stable panel rendering.
func (d *MemberDirectory) List(ctx context.Context, filter ListFilter) ([]core.Member, error) {
	members, err := d.store.ListMembers(ctx, filter == ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
