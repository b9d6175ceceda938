// Package memory is an in-memory receipt book used by the worker tests and
// the memory backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"cuotas/internal/core"
)

type Book struct {
	mu   sync.Mutex
	rows map[int64]core.PaymentWithMember
}

func New() *Book {
	return &Book{rows: make(map[int64]core.PaymentWithMember)}
}

// AppendReceipt stores the receipt and returns a synthetic row reference.
func (b *Book) AppendReceipt(_ context.Context, p core.PaymentWithMember) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows[p.ID] = p
	return fmt.Sprintf("mem:%d", p.ID), nil
}

// RemoveReceipt drops the receipt if present; absent rows are ignored.
func (b *Book) RemoveReceipt(_ context.Context, paymentID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rows, paymentID)
	return nil
}

// Has reports whether a receipt is in the book.
func (b *Book) Has(paymentID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.rows[paymentID]
	return ok
}

// Len returns the number of mirrored receipts.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}
