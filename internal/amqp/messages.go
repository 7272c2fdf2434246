package amqp

import (
	"encoding/json"
	"time"
)

// Ledger change actions carried on the event exchange.
const (
	ActionRecordCreated  = "record_created"
	ActionRecordUpdated  = "record_updated"
	ActionRecordDeleted  = "record_deleted"
	ActionBudgetUpserted = "budget_upserted"
)

// LedgerEventMessage announces that a user's ledger changed. Consumers
// re-fetch and re-aggregate; the message intentionally carries no record
// payload so a stale event can never feed stale data into a summary.
type LedgerEventMessage struct {
	UserID    string    `json:"user_id"`
	RecordID  string    `json:"record_id,omitempty"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(userID, recordID, action string) *LedgerEventMessage {
	return &LedgerEventMessage{
		UserID:    userID,
		RecordID:  recordID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
