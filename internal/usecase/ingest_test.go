package usecase

import (
	"testing"
	"time"

	"SigFlow/internal/domain/models"
)

func TestReceiptTime(t *testing.T) {
	env := models.WebhookEnvelope{ReceivedAt: "2024-03-01T12:00:00Z"}
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := receiptTime(env); !got.Equal(want) {
		t.Fatalf("receipt time = %v, want %v", got, want)
	}
}

func TestReceiptTimeFallsBackToNow(t *testing.T) {
	before := time.Now()
	for _, stamp := range []string{"", "yesterday-ish"} {
		got := receiptTime(models.WebhookEnvelope{ReceivedAt: stamp})
		if got.Before(before) {
			t.Fatalf("%q: expected current time fallback, got %v", stamp, got)
		}
	}
}
