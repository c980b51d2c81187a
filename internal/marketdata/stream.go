package marketdata

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"SigFlow/internal/domain/models"
	"SigFlow/pkg/logger"
)

// Streamer maintains a websocket subscription to the venue's bookTicker
// feed and writes every update into the ticker cache. Connection drops
// trigger a resubscribe after the configured delay.
type Streamer struct {
	url            string
	provider       string
	symbols        []string
	reconnectDelay time.Duration
	tickers        *TickerCache
	log            *logger.Logger
}

func NewStreamer(url, provider string, symbols []string, reconnectDelay time.Duration, tickers *TickerCache, log *logger.Logger) *Streamer {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Streamer{
		url:            url,
		provider:       provider,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		tickers:        tickers,
		log:            log,
	}
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

type bookTickerEvent struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	Ask    string `json:"a"`
}

// Run blocks until ctx is cancelled, reconnecting on any stream error.
func (s *Streamer) Run(ctx context.Context) {
	if s.url == "" || len(s.symbols) == 0 {
		s.log.Info("ticker stream disabled, no url or symbols configured")
		return
	}

	for {
		if err := s.connectAndRead(ctx); err != nil {
			s.log.Warn("ticker stream dropped",
				logger.String("provider", s.provider), logger.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Streamer) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(NormalizeSymbol(sym))+"@bookTicker")
	}
	if err := conn.WriteJSON(subscribeRequest{Method: "SUBSCRIBE", Params: streams, ID: 1}); err != nil {
		return err
	}

	s.log.Info("ticker stream connected",
		logger.String("provider", s.provider),
		logger.Int("symbols", len(s.symbols)))

	// Close the socket when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handleMessage(ctx, raw)
	}
}

func (s *Streamer) handleMessage(ctx context.Context, raw []byte) {
	var ev bookTickerEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Symbol == "" {
		return // subscription ack or unrelated frame
	}

	tk := models.CachedTicker{
		Provider: s.provider,
		Symbol:   ev.Symbol,
		Ts:       time.Now().UnixMilli(),
	}
	if bid, err := parsePrice(ev.Bid); err == nil {
		tk.Bid = &bid
	}
	if ask, err := parsePrice(ev.Ask); err == nil {
		tk.Ask = &ask
	}
	if tk.Bid == nil && tk.Ask == nil {
		return
	}

	if err := s.tickers.SetTicker(ctx, tk); err != nil {
		s.log.Debug("ticker write failed",
			logger.String("symbol", ev.Symbol), logger.Error(err))
	}
}

func parsePrice(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
