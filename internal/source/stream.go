package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"polycopy/internal/domain"
	"polycopy/internal/polymarket"
)

// StreamConfig configures the websocket trade stream.
type StreamConfig struct {
	URL string
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the doubling reconnect delay.
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	SeenCapacity      int
	Logger            *slog.Logger
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		URL:               "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		ReconnectDelay:    5 * time.Second,
		MaxReconnectDelay: time.Minute,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
		SeenCapacity:      1000,
	}
}

// Stream subscribes to the CLOB trade channel and emits trades in which a
// target wallet is the maker or the taker.
type Stream struct {
	config  StreamConfig
	targets map[string]bool
	handler Handler
	logger  *slog.Logger
	seen    *seenSet
}

// NewStream creates a stream for targets.
func NewStream(targets []string, handler Handler, config StreamConfig) *Stream {
	def := DefaultStreamConfig()
	if config.URL == "" {
		config.URL = def.URL
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = def.ReconnectDelay
	}
	if config.MaxReconnectDelay < config.ReconnectDelay {
		config.MaxReconnectDelay = max(def.MaxReconnectDelay, config.ReconnectDelay)
	}
	if config.PingInterval <= 0 {
		config.PingInterval = def.PingInterval
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = def.ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.SeenCapacity <= 0 {
		config.SeenCapacity = def.SeenCapacity
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	set := make(map[string]bool, len(targets))
	for _, t := range targets {
		set[strings.ToLower(t)] = true
	}

	return &Stream{
		config:  config,
		targets: set,
		handler: handler,
		logger:  logger,
		seen:    newSeenSet(config.SeenCapacity),
	}
}

type subscribeMessage struct {
	Type     string   `json:"type"`
	Assets   []string `json:"assets"`
	Channels []string `json:"channels"`
}

type wsTrade struct {
	EventType       string            `json:"event_type"`
	Type            string            `json:"type"`
	Market          string            `json:"market"`
	AssetID         string            `json:"asset_id"`
	Side            string            `json:"side"`
	Size            polymarket.Number `json:"size"`
	Price           polymarket.Number `json:"price"`
	MakerAddress    string            `json:"maker_address"`
	TakerAddress    string            `json:"taker_address"`
	MatchID         string            `json:"match_id"`
	TransactionHash string            `json:"transaction_hash"`
	Timestamp       polymarket.Number `json:"timestamp"`
}

// Run connects and reads until ctx is cancelled, reconnecting with a
// doubling delay after connection loss.
func (s *Stream) Run(ctx context.Context) error {
	if len(s.targets) == 0 {
		s.logger.Warn("no targets configured, stream not started")
		return nil
	}

	delay := s.config.ReconnectDelay
	for {
		conn, err := s.connect(ctx)
		if err == nil {
			delay = s.config.ReconnectDelay
			s.logger.Info("stream connected", "url", s.config.URL, "targets", len(s.targets))
			err = s.session(ctx, conn)
		}
		if ctx.Err() != nil {
			s.logger.Info("stream stopped")
			return nil
		}
		s.logger.Warn("stream disconnected", "err", err, "reconnect_in", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, s.config.MaxReconnectDelay)
	}
}

func (s *Stream) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, s.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// session subscribes on conn and reads until the connection fails or ctx
// is cancelled.
func (s *Stream) session(ctx context.Context, conn *websocket.Conn) error {
	var writeMu sync.Mutex
	done := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(done)
		conn.Close()
		wg.Wait()
	}()

	writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	err := conn.WriteJSON(subscribeMessage{Type: "subscribe", Assets: []string{}, Channels: []string{"trades"}})
	writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				writeMu.Unlock()
				conn.Close()
				return
			case <-ticker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				// A failed ping surfaces as a read error.
				conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.handleMessage(ctx, message)
	}
}

// handleMessage dispatches a trade message or an array of them.
func (s *Stream) handleMessage(ctx context.Context, message []byte) {
	message = bytes.TrimSpace(message)
	if len(message) == 0 {
		return
	}

	var trades []wsTrade
	if message[0] == '[' {
		if err := json.Unmarshal(message, &trades); err != nil {
			s.logger.Debug("unparseable stream message", "err", err)
			return
		}
	} else {
		var t wsTrade
		if err := json.Unmarshal(message, &t); err != nil {
			s.logger.Debug("unparseable stream message", "err", err)
			return
		}
		trades = []wsTrade{t}
	}

	for _, t := range trades {
		if t.EventType != "trade" && t.Type != "trade" {
			continue
		}
		for _, target := range s.matchTargets(t) {
			event, ok := t.toDomain(target)
			if !ok {
				continue
			}
			key := target + ":" + tradeKey(event)
			if s.seen.contains(key) {
				continue
			}
			s.seen.add(key)

			s.logger.Info("stream trade matched", "target", target, "asset", event.Asset, "side", event.Side)
			s.handler(ctx, event)
		}
	}
}

func (s *Stream) matchTargets(t wsTrade) []string {
	var out []string
	maker := strings.ToLower(t.MakerAddress)
	taker := strings.ToLower(t.TakerAddress)
	if maker != "" && s.targets[maker] {
		out = append(out, maker)
	}
	if taker != "" && taker != maker && s.targets[taker] {
		out = append(out, taker)
	}
	return out
}

func (t *wsTrade) toDomain(target string) (domain.TradeEvent, bool) {
	side, ok := domain.ParseSide(t.Side)
	if !ok {
		return domain.TradeEvent{}, false
	}
	hash := t.TransactionHash
	if hash == "" {
		hash = t.MatchID
	}

	ts := int64(t.Timestamp)
	if ts > 1e12 {
		ts /= 1000
	}

	return domain.TradeEvent{
		User:            target,
		Asset:           t.AssetID,
		Side:            side,
		Size:            float64(t.Size),
		Price:           float64(t.Price),
		TransactionHash: hash,
		ConditionID:     t.Market,
		Timestamp:       ts,
	}, true
}
