package amqp

import (
	"encoding/json"
	"time"
)

// BillExportMessage carries only the bill ID. The export worker fetches
// the current row from the store, so a stale message is harmless.
type BillExportMessage struct {
	BillID    string    `json:"bill_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBillExportMessage(billID string) *BillExportMessage {
	return &BillExportMessage{
		BillID:    billID,
		Timestamp: time.Now(),
	}
}

func (m *BillExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillExportMessageFromJSON(data []byte) (*BillExportMessage, error) {
	var msg BillExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
