package amqp

import "testing"

func TestPaymentSyncMessageRoundTrip(t *testing.T) {
	msg := NewPaymentSyncMessage("pay-123")
	if msg.Timestamp.IsZero() {
		t.Fatalf("timestamp not set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := PaymentSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.PaymentID != "pay-123" {
		t.Fatalf("payment id = %q, want %q", got.PaymentID, "pay-123")
	}
}

func TestPaymentSyncMessageFromJSONInvalid(t *testing.T) {
	if _, err := PaymentSyncMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}
