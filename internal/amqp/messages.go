package amqp

import (
	"encoding/json"
	"time"
)

// PaymentSyncMessage asks the cash-book worker to mirror one payment.
// It carries only the payment id; the worker fetches the full row from
// the database before exporting.
type PaymentSyncMessage struct {
	PaymentID string    `json:"payment_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPaymentSyncMessage(paymentID string) *PaymentSyncMessage {
	return &PaymentSyncMessage{
		PaymentID: paymentID,
		Timestamp: time.Now(),
	}
}

func (m *PaymentSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PaymentSyncMessageFromJSON(data []byte) (*PaymentSyncMessage, error) {
	var msg PaymentSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
