package models

import "encoding/json"

// SignalMessage is the queue payload for per-destination signal
// delivery.
type SignalMessage struct {
	ChatID int64   `json:"chatId"`
	Signal *Signal `json:"signal"`
}

// TextMessage is the queue payload for plain outbound text.
type TextMessage struct {
	ChatID    int64  `json:"chatId"`
	Text      string `json:"text"`
	ParseMode string `json:"parseMode,omitempty"`
}

// WebhookEnvelope is the queue payload wrapping a raw inbound webhook
// body together with its receive metadata.
type WebhookEnvelope struct {
	ReceivedAt string            `json:"receivedAt"` // ISO-8601 (RFC3339)
	IP         string            `json:"ip"`
	Headers    map[string]string `json:"headers,omitempty"`
	PayloadRaw json.RawMessage   `json:"payloadRaw"`
}
