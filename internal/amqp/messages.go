package amqp

import (
	"encoding/json"
	"time"
)

// Operation names carried by receipt queue messages.
const (
	OpSync   = "sync"
	OpDelete = "delete"
)

// ReceiptSyncMessage asks the mirror worker to reconcile one payment with
// the shared receipt book. It carries only the payment ID; the worker
// fetches the full row from the database so the queue never holds stale
// amounts.
type ReceiptSyncMessage struct {
	PaymentID int64     `json:"payment_id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReceiptSyncMessage(paymentID int64) *ReceiptSyncMessage {
	return &ReceiptSyncMessage{
		PaymentID: paymentID,
		Operation: OpSync,
		Timestamp: time.Now(),
	}
}

func NewReceiptDeleteMessage(paymentID int64) *ReceiptSyncMessage {
	return &ReceiptSyncMessage{
		PaymentID: paymentID,
		Operation: OpDelete,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReceiptSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReceiptSyncMessageFromJSON creates a message from JSON bytes
func ReceiptSyncMessageFromJSON(data []byte) (*ReceiptSyncMessage, error) {
	var msg ReceiptSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
