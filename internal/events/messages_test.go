package events

import (
	"testing"
	"time"
)

func TestDatasetReplacedMessageRoundTrip(t *testing.T) {
	msg := NewDatasetReplacedMessage(42, []string{"Grocery", "Rent"}, []int{2023, 2024}, 3)
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Minute {
		t.Fatalf("timestamp not set: %v", msg.Timestamp)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := DatasetReplacedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Rows != 42 || got.Generation != 3 || len(got.Categories) != 2 || len(got.Years) != 2 {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestDatasetReplacedMessageFromJSONInvalid(t *testing.T) {
	if _, err := DatasetReplacedMessageFromJSON([]byte("{")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
