package events

import (
	"encoding/json"
	"time"
)

// ExpenseCreated announces a freshly recorded expense. It carries only the
// identifiers; consumers fetch the full row from storage so a stale payload
// can never overwrite newer data.
type ExpenseCreated struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseCreated builds the event for an expense that was just inserted.
func NewExpenseCreated(id, ownerID string) *ExpenseCreated {
	return &ExpenseCreated{
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreated) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedFromJSON creates a message from JSON bytes
func ExpenseCreatedFromJSON(data []byte) (*ExpenseCreated, error) {
	var msg ExpenseCreated
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
