package mirror

import (
	"context"

	"cuotas/internal/core"
)

// Ports for the receipt-book mirror. The ledger's SQLite database is the
// source of truth; the mirror is the treasurer's shared spreadsheet, kept
// eventually consistent by the worker.
type (
	// ReceiptAppender appends one receipt row and returns an opaque row
	// reference for logging.
	ReceiptAppender interface {
		AppendReceipt(ctx context.Context, p core.PaymentWithMember) (rowRef string, err error)
	}

	// ReceiptRemover strikes the row for a deleted payment. Removing an
	// absent row is not an error; deletes are idempotent end to end.
	ReceiptRemover interface {
		RemoveReceipt(ctx context.Context, paymentID int64) error
	}
)
