package usecase

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/pkg/util"
)

// FlexFloat decodes a JSON number that may arrive as either a number or
// a numeric string, which TradingView templates produce freely.
type FlexFloat struct {
	Value float64
	Set   bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Leave unset rather than failing the whole payload.
		return nil
	}
	f.Value = v
	f.Set = true
	return nil
}

// FlexTime decodes an alert timestamp that may arrive as RFC3339 text
// or a bare unix value in seconds or milliseconds.
type FlexTime struct {
	Value time.Time
	Set   bool
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if v, ok := util.ParseTime(s); ok {
		t.Value = v
		t.Set = true
	}
	return nil
}

// ParsedPayload is the recognized TradingView alert shape. Every field
// is optional; defaults fill the gaps.
type ParsedPayload struct {
	Signal     string    `json:"signal"`
	Side       string    `json:"side"`
	Direction  string    `json:"direction"`
	Kind       string    `json:"kind"`
	Symbol     string    `json:"symbol"`
	Ticker     string    `json:"ticker"`
	Price      FlexFloat `json:"price"`
	Interval   string    `json:"interval"`
	Timeframe  string    `json:"timeframe"`
	Strategy   string    `json:"strategy"`
	Time       FlexTime  `json:"time"`
	Timestamp  FlexTime  `json:"timestamp"`
	Message    string    `json:"message"`
	ExternalID string    `json:"id"`
}

// UnparsedPayload keeps a webhook body that was not a JSON object so it
// can still be forwarded as an opaque alert.
type UnparsedPayload struct {
	Text string
}

// Payload is the decode result: exactly one branch is non-nil.
type Payload struct {
	Parsed   *ParsedPayload
	Unparsed *UnparsedPayload
}

// ParsePayload decodes a webhook body. Anything that is not a JSON
// object falls into the unparsed branch verbatim.
func ParsePayload(raw []byte) Payload {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var p ParsedPayload
		if err := json.Unmarshal(raw, &p); err == nil {
			return Payload{Parsed: &p}
		}
	}
	return Payload{Unparsed: &UnparsedPayload{Text: trimmed}}
}

// MapDefaults fill payload fields the alert template omitted.
type MapDefaults struct {
	AssetType  models.AssetType
	Instrument string
	Interval   string
	Strategy   string
}

func mapSide(s string) models.Side {
	switch v := strings.ToLower(strings.TrimSpace(s)); {
	case strings.Contains(v, "buy"), strings.Contains(v, "long"):
		return models.SideBuy
	case strings.Contains(v, "sell"), strings.Contains(v, "short"):
		return models.SideSell
	default:
		return models.SideNeutral
	}
}

// mapKind honors an explicit ENTRY/EXIT/ALERT kind; any other non-empty
// value degrades to ALERT. Without the field a directional signal is an
// entry.
func mapKind(kind string, side models.Side) models.SignalKind {
	switch strings.ToUpper(strings.TrimSpace(kind)) {
	case "":
		if side != models.SideNeutral {
			return models.KindEntry
		}
		return models.KindAlert
	case string(models.KindEntry):
		return models.KindEntry
	case string(models.KindExit):
		return models.KindExit
	default:
		return models.KindAlert
	}
}

const unparsedMaxLen = 512

// MapToSignal converts a webhook payload into a signal. fallbackPrice is
// used when the payload carries no price; when both are absent the
// reason notes the gap and the signal goes out without a price.
func MapToSignal(p Payload, defaults MapDefaults, fallbackPrice *float64, now time.Time, raw []byte) *models.Signal {
	sig := &models.Signal{
		Source:     models.SourceTradingView,
		AssetType:  defaults.AssetType,
		Instrument: defaults.Instrument,
		Interval:   defaults.Interval,
		Strategy:   defaults.Strategy,
		Kind:       models.KindAlert,
		Side:       models.SideNeutral,
		Time:       now.UnixMilli(),
		Confidence: 50,
		Tags:       []string{"tradingview"},
		RawPayload: json.RawMessage(raw),
	}

	if p.Unparsed != nil {
		text := util.Truncate(p.Unparsed.Text, unparsedMaxLen)
		sig.Tags = append(sig.Tags, "unparsed")
		sig.Reason = "unparsed webhook alert: " + text
		applyPrice(sig, nil, fallbackPrice)
		return sig
	}

	pp := p.Parsed

	sideSrc := pp.Signal
	if strings.TrimSpace(sideSrc) == "" {
		sideSrc = pp.Side
	}
	if strings.TrimSpace(sideSrc) == "" {
		sideSrc = pp.Direction
	}
	sig.Side = mapSide(sideSrc)
	sig.Kind = mapKind(pp.Kind, sig.Side)

	if sym := strings.TrimSpace(pp.Symbol); sym != "" {
		sig.Instrument = strings.ToUpper(sym)
	} else if sym := strings.TrimSpace(pp.Ticker); sym != "" {
		sig.Instrument = strings.ToUpper(sym)
	}
	if iv := strings.TrimSpace(pp.Interval); iv != "" {
		sig.Interval = iv
	} else if iv := strings.TrimSpace(pp.Timeframe); iv != "" {
		sig.Interval = iv
	}
	if st := strings.TrimSpace(pp.Strategy); st != "" {
		sig.Strategy = st
	}
	if pp.Time.Set {
		sig.Time = pp.Time.Value.UnixMilli()
	} else if pp.Timestamp.Set {
		sig.Time = pp.Timestamp.Value.UnixMilli()
	}
	sig.ExternalID = strings.TrimSpace(pp.ExternalID)

	if msg := strings.TrimSpace(pp.Message); msg != "" {
		sig.Reason = msg
	} else {
		sig.Reason = "tradingview alert"
	}

	var payloadPrice *float64
	if pp.Price.Set {
		payloadPrice = &pp.Price.Value
	}
	applyPrice(sig, payloadPrice, fallbackPrice)
	return sig
}

func applyPrice(sig *models.Signal, payloadPrice, fallbackPrice *float64) {
	switch {
	case payloadPrice != nil:
		sig.Price = payloadPrice
	case fallbackPrice != nil:
		sig.Price = fallbackPrice
	default:
		sig.Reason += " (price unavailable)"
	}
}
