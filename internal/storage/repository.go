package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuotas/internal/core"

	sqlite "modernc.org/sqlite"
)

// SQLite extended result codes for constraint violations.
const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// isUniqueViolation reports whether err is the driver's uniqueness
// constraint signal. This is the final authority for duplicate payments;
// application code never pre-checks.
func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepository) CreateMember(ctx context.Context, name string, group core.Group) (core.Member, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO members (name, cuadro, active) VALUES (?, ?, 1)`,
		name, group.String())
	if err != nil {
		return core.Member{}, fmt.Errorf("insert member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Member{}, fmt.Errorf("member insert id: %w", err)
	}

	slog.InfoContext(ctx, "Member saved to SQLite", "id", id, "cuadro", group.String())
	return core.Member{ID: id, Name: name, Group: group, Active: true}, nil
}

func (r *SQLiteRepository) UpdateMember(ctx context.Context, id int64, name string, group core.Group) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET name = ?, cuadro = ? WHERE id = ?`,
		name, group.String(), id)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetMemberActive(ctx context.Context, id int64, active bool) error {
	// RowsAffected is 0 when the flag already has the target value, so an
	// existence check keeps SetActive idempotent without faking NotFound.
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM members WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check member: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE members SET active = ? WHERE id = ?`, boolToInt(active), id); err != nil {
		return fmt.Errorf("set member active: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id int64) (core.Member, error) {
	var (
		m      core.Member
		cuadro string
		active int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, cuadro, active FROM members WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &cuadro, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, core.ErrNotFound
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("get member: %w", err)
	}
	m.Group = core.ParseGroup(cuadro)
	m.Active = active != 0
	return m, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, activeOnly bool) ([]core.Member, error) {
	query := `SELECT id, name, cuadro, active FROM members`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY
		CASE cuadro
			WHEN 'pack' THEN 0
			WHEN 'troop' THEN 1
			WHEN 'senior-troop' THEN 2
			WHEN 'crew' THEN 3
			ELSE 4
		END, name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var (
			m      core.Member
			cuadro string
			active int
		)
		if err := rows.Scan(&m.ID, &m.Name, &cuadro, &active); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Group = core.ParseGroup(cuadro)
		m.Active = active != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetFee(ctx context.Context, month core.Month) (core.FeeEntry, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents FROM fee_schedule WHERE month = ?`, month.String()).
		Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FeeEntry{}, core.ErrNotFound
	}
	if err != nil {
		return core.FeeEntry{}, fmt.Errorf("get fee: %w", err)
	}
	return core.FeeEntry{Month: month, Amount: core.Money{Cents: cents}}, nil
}

func (r *SQLiteRepository) UpsertFee(ctx context.Context, entry core.FeeEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fee_schedule (month, amount_cents) VALUES (?, ?)
		 ON CONFLICT(month) DO UPDATE SET amount_cents = excluded.amount_cents`,
		entry.Month.String(), entry.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert fee: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListFees(ctx context.Context) ([]core.FeeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, amount_cents FROM fee_schedule ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	defer rows.Close()

	var out []core.FeeEntry
	for rows.Next() {
		var (
			month string
			cents int64
		)
		if err := rows.Scan(&month, &cents); err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}
		out = append(out, core.FeeEntry{Month: core.Month(month), Amount: core.Money{Cents: cents}})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (member_id, month, amount_cents, recorded_at, mirrored)
		 VALUES (?, ?, ?, ?, 0)`,
		p.MemberID, p.Month.String(), p.Amount.Cents, p.RecordedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return core.Payment{}, core.ErrDuplicatePayment
		}
		return core.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Payment{}, fmt.Errorf("payment insert id: %w", err)
	}
	p.ID = id

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", id,
		"member_id", p.MemberID,
		"month", p.Month.String(),
		"amount_cents", p.Amount.Cents)
	return p, nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id int64) error {
	// Idempotent by design; zero rows affected is fine.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (core.PaymentWithMember, error) {
	var (
		p     core.PaymentWithMember
		month string
		rec   time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.member_id, p.month, p.amount_cents, p.recorded_at, m.name
		 FROM payments p
		 JOIN members m ON m.id = p.member_id
		 WHERE p.id = ?`, id).
		Scan(&p.ID, &p.MemberID, &month, &p.Amount.Cents, &rec, &p.MemberName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentWithMember{}, core.ErrNotFound
	}
	if err != nil {
		return core.PaymentWithMember{}, fmt.Errorf("get payment: %w", err)
	}
	p.Month = core.Month(month)
	p.RecordedAt = rec
	return p, nil
}

func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.PaymentWithMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.member_id, p.month, p.amount_cents, p.recorded_at, m.name
		 FROM payments p
		 JOIN members m ON m.id = p.member_id
		 ORDER BY p.recorded_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentWithMember
	for rows.Next() {
		var (
			p     core.PaymentWithMember
			month string
			rec   time.Time
		)
		if err := rows.Scan(&p.ID, &p.MemberID, &month, &p.Amount.Cents, &rec, &p.MemberName); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Month = core.Month(month)
		p.RecordedAt = rec
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListPaymentsForMember(ctx context.Context, memberID int64) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, member_id, month, amount_cents, recorded_at
		 FROM payments WHERE member_id = ? ORDER BY month`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list member payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p     core.Payment
			month string
			rec   time.Time
		)
		if err := rows.Scan(&p.ID, &p.MemberID, &month, &p.Amount.Cents, &rec); err != nil {
			return nil, fmt.Errorf("scan member payment: %w", err)
		}
		p.Month = core.Month(month)
		p.RecordedAt = rec
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
