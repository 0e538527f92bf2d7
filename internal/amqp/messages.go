package amqp

import (
	"encoding/json"
	"time"
)

// Event operations carried on the sync queue.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// TransactionEvent is a lightweight sync message. It carries only the
// transaction id and the operation; the worker fetches the full record from
// the store when it needs one.
type TransactionEvent struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(id, op string) *TransactionEvent {
	return &TransactionEvent{
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errEmptyEventID
	}
	return &msg, nil
}
