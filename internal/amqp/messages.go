package amqp

import (
	"encoding/json"
	"time"
)

// Record categories carried in change events.
const (
	CategoryInstallment = "bfko"
	CategoryCard        = "cc_card"
	CategoryServiceFee  = "service_fee"
	CategorySheetFee    = "sheet_fee"
)

// Change actions.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionImported = "imported"
)

// RecordChangedMessage tells the worker that stored records changed. It only
// names what changed; the worker reloads the data itself.
type RecordChangedMessage struct {
	Category  string    `json:"category"`
	Action    string    `json:"action"`
	Count     int       `json:"count"`
	Year      int       `json:"year,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(category, action string, count, year int) *RecordChangedMessage {
	return &RecordChangedMessage{
		Category:  category,
		Action:    action,
		Count:     count,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
