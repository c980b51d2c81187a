package jobs

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"SigFlow/internal/domain/models"
	"SigFlow/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type recordingNotifier struct {
	chatID    int64
	text      string
	parseMode string
	calls     int
}

func (n *recordingNotifier) SendMessage(_ context.Context, chatID int64, text, parseMode string) error {
	n.chatID = chatID
	n.text = text
	n.parseMode = parseMode
	n.calls++
	return nil
}

func TestChatIDUnmarshal(t *testing.T) {
	var c ChatID
	if err := json.Unmarshal([]byte(`-1001234`), &c); err != nil {
		t.Fatalf("number: %v", err)
	}
	if c != -1001234 {
		t.Fatalf("got %d", c)
	}

	c = 0
	if err := json.Unmarshal([]byte(`"-1001234"`), &c); err != nil {
		t.Fatalf("quoted: %v", err)
	}
	if c != -1001234 {
		t.Fatalf("got %d", c)
	}

	c = 42
	if err := json.Unmarshal([]byte(`null`), &c); err != nil {
		t.Fatalf("null: %v", err)
	}
	if c != 42 {
		t.Fatalf("null should leave the value alone, got %d", c)
	}

	if err := json.Unmarshal([]byte(`"abc"`), &c); err == nil {
		t.Fatalf("garbage chat id should error")
	}
}

func TestFormatSignal(t *testing.T) {
	price := 64000.123456
	entry := 64000.0
	sl := 63000.0
	sig := &models.Signal{
		Side:       models.SideBuy,
		Instrument: "BTCUSDT",
		Interval:   "15m",
		Strategy:   "breakout",
		Price:      &price,
		Confidence: 68,
		Reason:     "close above 5-bar high & volume > avg",
		Levels:     &models.Levels{Entry: &entry, SL: &sl},
	}

	text := FormatSignal(sig)
	for _, want := range []string{
		"🟢 <b>BUY BTCUSDT</b> [15m]",
		"<code>breakout</code>",
		"Price: <b>64000.123456</b>",
		"Confidence: 68",
		"Entry: 64000.000000",
		"SL: 63000.000000",
		"&amp;",
		"&gt;",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("formatted signal missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "TP1:") {
		t.Fatalf("unset levels should not render")
	}
}

func TestFormatSignalNoPrice(t *testing.T) {
	sig := &models.Signal{
		Side:       models.SideNeutral,
		Instrument: "XAUUSD",
		Interval:   "1h",
		Strategy:   "tradingview",
		Confidence: 50,
	}
	text := FormatSignal(sig)
	if strings.Contains(text, "Price:") {
		t.Fatalf("nil price should not render a price line:\n%s", text)
	}
	if !strings.HasPrefix(text, "ℹ️") {
		t.Fatalf("neutral signals use the info icon:\n%s", text)
	}
}

func TestSendTextJobDelivers(t *testing.T) {
	n := &recordingNotifier{}
	job := NewSendTextJob(n, testLogger(t))

	payload := map[string]interface{}{"chatId": "-100200", "text": "hello", "parseMode": "HTML"}
	if err := job.Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n.calls != 1 || n.chatID != -100200 || n.text != "hello" || n.parseMode != "HTML" {
		t.Fatalf("unexpected delivery: %+v", n)
	}
}

func TestSendTextJobRejectsEmpty(t *testing.T) {
	n := &recordingNotifier{}
	job := NewSendTextJob(n, testLogger(t))

	if err := job.Handle(context.Background(), map[string]interface{}{"text": "hello"}); err == nil {
		t.Fatalf("missing chat id should error")
	}
	if n.calls != 0 {
		t.Fatalf("nothing should have been sent")
	}
}

func TestSendSignalJobDelivers(t *testing.T) {
	n := &recordingNotifier{}
	job := NewSendSignalJob(n, testLogger(t))

	msg := models.SignalMessage{ChatID: -500, Signal: &models.Signal{
		Side: models.SideSell, Instrument: "ETHUSDT", Interval: "1h", Strategy: "macd", Confidence: 74,
	}}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := job.Handle(context.Background(), json.RawMessage(raw)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n.chatID != -500 || !strings.Contains(n.text, "ETHUSDT") || n.parseMode != "HTML" {
		t.Fatalf("unexpected delivery: chat=%d text=%q mode=%q", n.chatID, n.text, n.parseMode)
	}
}
