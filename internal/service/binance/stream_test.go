package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"TemaScan/internal/domain/models"

	"github.com/gorilla/websocket"
)

// tickerServer upgrades each connection, sends one miniTicker frame, then
// hangs up so the read loop observes an error.
func tickerServer(t *testing.T, conns *int, mu *sync.Mutex) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		mu.Lock()
		*conns++
		mu.Unlock()

		frame := `{"stream":"btcusdt@miniTicker","data":{"s":"BTCUSDT","c":"100","o":"80"}}`
		_ = c.WriteMessage(websocket.TextMessage, []byte(frame))
		time.Sleep(50 * time.Millisecond)
		_ = c.Close()
	}))
}

func awaitQuote(t *testing.T, quotes <-chan *models.TickerQuote) *models.TickerQuote {
	t.Helper()
	select {
	case q := <-quotes:
		if q == nil {
			t.Fatal("quote channel closed before a quote arrived")
		}
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("no quote before timeout")
	}
	return nil
}

func TestStreamReadAndReconnect(t *testing.T) {
	var (
		mu    sync.Mutex
		conns int
	)
	srv := tickerServer(t, &conns, &mu)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewStream(wsURL, []string{"BTCUSDT"}, 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.IsConnected() {
		t.Fatal("IsConnected = false after Connect")
	}

	quotes, errs := s.Read(ctx)
	q := awaitQuote(t, quotes)
	if q.Symbol != "BTCUSDT" || q.Price != 100 || q.ChangePercent != 25 {
		t.Fatalf("quote = %+v", q)
	}

	select {
	case <-errs:
		// server hung up
	case <-time.After(2 * time.Second):
		t.Fatal("no read error after server close")
	}

	if err := s.Reconnect(ctx); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	quotes2, _ := s.Read(ctx)
	q = awaitQuote(t, quotes2)
	if q.Symbol != "BTCUSDT" {
		t.Fatalf("quote after reconnect = %+v", q)
	}

	_ = s.Close()
	if s.IsConnected() {
		t.Fatal("IsConnected = true after Close")
	}

	mu.Lock()
	defer mu.Unlock()
	if conns != 2 {
		t.Fatalf("server saw %d connections, want 2", conns)
	}
}

func TestStreamReadWithoutConnect(t *testing.T) {
	s := NewStream("ws://127.0.0.1:0", []string{"BTCUSDT"}, time.Millisecond, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, errs := s.Read(ctx)
	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("want error from unconnected stream")
		}
	case <-time.After(time.Second):
		t.Fatal("no error from unconnected stream")
	}
}
