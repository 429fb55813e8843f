package amqp

import (
	"encoding/json"
	"time"
)

// RefreshMessage asks workers to reload the booking table for a locator. The
// worker fetches the table itself; the message only says which one and why.
type RefreshMessage struct {
	Locator   string    `json:"locator"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRefreshMessage(locator, reason string) *RefreshMessage {
	return &RefreshMessage{
		Locator:   locator,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON creates a message from JSON bytes
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
