package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entities and operations carried by LedgerChangedMessage.
const (
	EntityExpense  = "expense"
	EntityCategory = "category"
	EntitySettings = "settings"

	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// LedgerChangedMessage tells consumers that a ledger entity changed. It
// carries identifiers only; consumers reload what they need from the store.
// Month is the YYYY-MM the change affects, empty when unknown.
type LedgerChangedMessage struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	Op        string    `json:"op"`
	EntityID  int64     `json:"entity_id,omitempty"`
	Month     string    `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(entity, op string, entityID int64, month string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		ID:        uuid.NewString(),
		Entity:    entity,
		Op:        op,
		EntityID:  entityID,
		Month:     month,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and sanity-checks a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" || msg.Op == "" {
		return nil, fmt.Errorf("message %q missing entity or op", msg.ID)
	}
	return &msg, nil
}
