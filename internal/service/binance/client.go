// Package binance adapts the Binance public REST and WebSocket APIs to the
// scanner's candle-source, universe and market-stream ports.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"TemaScan/internal/domain/models"
	drepo "TemaScan/internal/domain/repository"
	"TemaScan/internal/service/retry"
	xhttp "TemaScan/pkg/http"
)

const (
	defaultSpotURL    = "https://api.binance.com"
	defaultFuturesURL = "https://fapi.binance.com"

	// Binance caps klines at 1000 per request; 45min resampling needs
	// three 15m bars per output bar.
	maxKlineLimit = 1000
)

// Client calls the Binance public market-data endpoints. It implements
// repository.CandleSource.
type Client struct {
	http       *xhttp.Client
	spotURL    string
	futuresURL string
}

// Option configures Client.
type Option func(*Client)

// WithBaseURLs overrides the spot and futures endpoints (tests).
func WithBaseURLs(spot, futures string) Option {
	return func(c *Client) {
		if spot != "" {
			c.spotURL = spot
		}
		if futures != "" {
			c.futuresURL = futures
		}
	}
}

// WithHTTPTimeout bounds each REST call.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = xhttp.NewClient(xhttp.WithTimeout(d))
	}
}

// NewClient creates a Binance REST client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:       xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		spotURL:    defaultSpotURL,
		futuresURL: defaultFuturesURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Candles fetches an ascending OHLCV sequence. The 45min timeframe has no
// native Binance interval and is resampled from 15m bars; a trailing
// partial bucket is kept as the forming candle.
func (c *Client) Candles(ctx context.Context, symbol string, market models.Market, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	interval, resample := tf.BinanceInterval()
	fetchLimit := limit * resample
	if fetchLimit > maxKlineLimit {
		fetchLimit = maxKlineLimit
	}

	base, path := c.spotURL, "/api/v3/klines"
	if market == models.MarketPerp {
		base, path = c.futuresURL, "/fapi/v1/klines"
	}

	body, err := c.get(ctx, base+path, map[string][]string{
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(fetchLimit)},
	})
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, tf, err)
	}

	candles, err := parseKlines(body)
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, tf, err)
	}
	if resample > 1 {
		candles = Resample(candles, resample)
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// get performs a GET and surfaces non-2xx statuses as retry.StatusError so
// the retry policy can classify them.
func (c *Client) get(ctx context.Context, url string, query map[string][]string) ([]byte, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         url,
		QueryParams: query,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.StatusError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

// parseKlines decodes the Binance kline array-of-arrays format:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKlines(body []byte) ([]models.Candle, error) {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("malformed kline payload: %w", err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			return nil, fmt.Errorf("malformed kline row: %d fields", len(row))
		}
		var openMs, closeMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("kline open time: %w", err)
		}
		if err := json.Unmarshal(row[6], &closeMs); err != nil {
			return nil, fmt.Errorf("kline close time: %w", err)
		}

		var fields [5]float64
		for i := 1; i <= 5; i++ {
			var s string
			if err := json.Unmarshal(row[i], &s); err != nil {
				return nil, fmt.Errorf("kline field %d: %w", i, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline field %d: %w", i, err)
			}
			fields[i-1] = v
		}

		candles = append(candles, models.Candle{
			OpenTime:  time.UnixMilli(openMs).UTC(),
			CloseTime: time.UnixMilli(closeMs).UTC(),
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return candles, nil
}

// Resample aggregates consecutive candles into buckets of factor bars:
// open = first, high = max, low = min, close = last, volume = sum. A
// trailing partial bucket becomes the forming candle of the output.
func Resample(candles []models.Candle, factor int) []models.Candle {
	if factor <= 1 || len(candles) == 0 {
		return candles
	}
	out := make([]models.Candle, 0, len(candles)/factor+1)
	for start := 0; start < len(candles); start += factor {
		end := start + factor
		if end > len(candles) {
			end = len(candles)
		}
		bucket := candles[start]
		bucket.CloseTime = candles[end-1].CloseTime
		bucket.Close = candles[end-1].Close
		for _, c := range candles[start+1 : end] {
			if c.High > bucket.High {
				bucket.High = c.High
			}
			if c.Low < bucket.Low {
				bucket.Low = c.Low
			}
			bucket.Volume += c.Volume
		}
		out = append(out, bucket)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// displayName converts an exchange symbol to the user-facing pair form:
// BTCUSDT -> BTC/USDT (spot) or BTC/USDT:USDT (perpetual).
func displayName(symbol string, market models.Market) string {
	base := strings.TrimSuffix(symbol, "USDT")
	if base == symbol {
		return symbol
	}
	if market == models.MarketPerp {
		return base + "/USDT:USDT"
	}
	return base + "/USDT"
}
