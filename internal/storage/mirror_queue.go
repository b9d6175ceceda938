package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PendingMirrorPayment is the minimal row the mirror worker needs to decide
// what still has to reach the shared receipt book.
type PendingMirrorPayment struct {
	ID         int64
	RecordedAt time.Time
}

// ListUnmirroredPayments returns payments not yet appended to the receipt
// book, oldest first, up to limit.
func (r *SQLiteRepository) ListUnmirroredPayments(ctx context.Context, limit int) ([]PendingMirrorPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recorded_at FROM payments
		 WHERE mirrored = 0
		 ORDER BY recorded_at, id
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unmirrored payments: %w", err)
	}
	defer rows.Close()

	var out []PendingMirrorPayment
	for rows.Next() {
		var p PendingMirrorPayment
		if err := rows.Scan(&p.ID, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan unmirrored payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkMirrored flags a payment as present in the receipt book.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE payments SET mirrored = 1, mirror_error = NULL WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark payment mirrored: %w", err)
	}

	slog.InfoContext(ctx, "Payment marked as mirrored", "id", id)
	return nil
}

// MarkMirrorError records the last mirror failure for a payment. The row
// stays unmirrored so the catch-up batch retries it.
func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id int64, msg string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE payments SET mirror_error = ? WHERE id = ?`, msg, id); err != nil {
		return fmt.Errorf("mark payment mirror error: %w", err)
	}

	slog.WarnContext(ctx, "Payment marked with mirror error", "id", id, "mirror_error", msg)
	return nil
}
