package amqp

import (
	"encoding/json"
	"time"
)

// ChangeMessage announces that ledger state changed. It deliberately
// carries no account or expense IDs: consumers re-fetch what they need.
type ChangeMessage struct {
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage() *ChangeMessage {
	return &ChangeMessage{Timestamp: time.Now()}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
