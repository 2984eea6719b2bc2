package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"TemaScan/internal/domain/models"
	drepo "TemaScan/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Stream implements repository.MarketStream over the Binance combined
// miniTicker WebSocket, feeding the market snapshot independently of scan
// state.
type Stream struct {
	wsURL          string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewStream creates a miniTicker stream for the given exchange symbols
// (e.g. BTCUSDT).
func NewStream(wsURL string, symbols []string, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	return &Stream{
		wsURL:          wsURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect dials the combined stream with every symbol subscribed up front.
func (s *Stream) Connect(ctx context.Context) error {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(sym)+"@miniTicker")
	}
	u := fmt.Sprintf("%s/stream?streams=%s", s.wsURL, strings.Join(streams, "/"))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance stream connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	return nil
}

type miniTicker struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
	Open   string `json:"o"`
}

type combinedFrame struct {
	Stream string     `json:"stream"`
	Data   miniTicker `json:"data"`
}

// Read streams ticker quotes and errors until ctx is done or the
// connection fails. Both loops operate on the connection captured at call
// time, and the ping loop stops with the read loop, so a later Reconnect
// never has two writers on one connection.
func (s *Stream) Read(ctx context.Context) (<-chan *models.TickerQuote, <-chan error) {
	quotes := make(chan *models.TickerQuote, 256)
	errs := make(chan error, 1)

	conn := s.current()
	done := make(chan struct{})

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(done)
		defer close(quotes)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("binance stream: not connected")
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance stream read: %w", err)
					return
				}
				var frame combinedFrame
				if err := json.Unmarshal(b, &frame); err != nil || frame.Data.Symbol == "" {
					// ignore non-ticker frames
					continue
				}
				q := quoteFrom(frame.Data)
				if q == nil {
					continue
				}
				select {
				case quotes <- q:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return quotes, errs
}

func quoteFrom(t miniTicker) *models.TickerQuote {
	closeP, err := strconv.ParseFloat(t.Close, 64)
	if err != nil {
		return nil
	}
	openP, err := strconv.ParseFloat(t.Open, 64)
	if err != nil || openP == 0 {
		return nil
	}
	return &models.TickerQuote{
		Symbol:        t.Symbol,
		Price:         closeP,
		ChangePercent: (closeP - openP) / openP * 100,
	}
}

// Reconnect closes and redials after the configured delay.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	return s.Connect(ctx)
}

// Close closes the connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Stream) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
