package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/network-diagnostics-platform/internal/models"
)

func TestDefaultNATSConfig(t *testing.T) {
	config := DefaultNATSConfig()

	if config.URL != nats.DefaultURL {
		t.Errorf("URL = %q, want %q", config.URL, nats.DefaultURL)
	}
	if config.StreamRetention != 7*24*time.Hour {
		t.Errorf("StreamRetention = %v, want 7d", config.StreamRetention)
	}
	if config.MaxReconnects != -1 {
		t.Errorf("MaxReconnects = %d, want unlimited (-1)", config.MaxReconnects)
	}
}

func TestTestEventRoundTrip(t *testing.T) {
	event := TestEvent{
		TestID:    "11111111-2222-3333-4444-555555555555",
		Status:    models.StatusPartial,
		Timestamp: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded TestEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded != event {
		t.Errorf("round trip = %+v, want %+v", decoded, event)
	}
}
