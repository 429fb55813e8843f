package amqp

import (
	"testing"
	"time"
)

func TestRefreshMessageRoundtrip(t *testing.T) {
	msg := NewRefreshMessage("bookings", "manual")
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := RefreshMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Locator != "bookings" || got.Reason != "manual" {
		t.Errorf("roundtrip = %+v", got)
	}
	if !got.Timestamp.Truncate(time.Millisecond).Equal(msg.Timestamp.Truncate(time.Millisecond)) {
		t.Errorf("Timestamp roundtrip: got %v, want %v", got.Timestamp, msg.Timestamp)
	}
}

func TestRefreshMessageFromInvalidJSON(t *testing.T) {
	if _, err := RefreshMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
