package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"TemaScan/internal/domain/models"
)

type spotTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	QuoteVolume        string `json:"quoteVolume"`
	PriceChangePercent string `json:"priceChangePercent"`
}

type futuresTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	QuoteVolume        string `json:"quoteVolume"`
	PriceChangePercent string `json:"priceChangePercent"`
}

type futuresExchangeInfo struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		ContractType string `json:"contractType"`
		Status       string `json:"status"`
	} `json:"symbols"`
}

// Tickers returns all USDT-quoted 24h tickers of a single market, sorted by
// quote volume descending. Perpetual results are restricted to PERPETUAL
// contracts via the futures exchange info.
func (c *Client) Tickers(ctx context.Context, market models.Market) ([]models.Instrument, error) {
	switch market {
	case models.MarketSpot:
		return c.spotTickers(ctx)
	case models.MarketPerp:
		return c.futuresTickers(ctx)
	default:
		return nil, fmt.Errorf("tickers: unsupported market %q", market)
	}
}

func (c *Client) spotTickers(ctx context.Context) ([]models.Instrument, error) {
	body, err := c.get(ctx, c.spotURL+"/api/v3/ticker/24hr", nil)
	if err != nil {
		return nil, fmt.Errorf("spot tickers: %w", err)
	}
	var raw []spotTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("spot tickers: malformed payload: %w", err)
	}

	out := make([]models.Instrument, 0, len(raw))
	for _, t := range raw {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		out = append(out, instrumentFrom(t.Symbol, models.MarketSpot, t.LastPrice, t.QuoteVolume, t.PriceChangePercent))
	}
	sortByVolume(out)
	return out, nil
}

func (c *Client) futuresTickers(ctx context.Context) ([]models.Instrument, error) {
	perp, err := c.perpetualSymbols(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, c.futuresURL+"/fapi/v1/ticker/24hr", nil)
	if err != nil {
		return nil, fmt.Errorf("futures tickers: %w", err)
	}
	var raw []futuresTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("futures tickers: malformed payload: %w", err)
	}

	out := make([]models.Instrument, 0, len(raw))
	for _, t := range raw {
		if !strings.HasSuffix(t.Symbol, "USDT") || !perp[t.Symbol] {
			continue
		}
		out = append(out, instrumentFrom(t.Symbol, models.MarketPerp, t.LastPrice, t.QuoteVolume, t.PriceChangePercent))
	}
	sortByVolume(out)
	return out, nil
}

// perpetualSymbols resolves the set of trading PERPETUAL contracts so the
// ticker list excludes dated futures.
func (c *Client) perpetualSymbols(ctx context.Context) (map[string]bool, error) {
	body, err := c.get(ctx, c.futuresURL+"/fapi/v1/exchangeInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("futures exchange info: %w", err)
	}
	var info futuresExchangeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("futures exchange info: malformed payload: %w", err)
	}

	perp := make(map[string]bool, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.ContractType == "PERPETUAL" && s.Status == "TRADING" {
			perp[s.Symbol] = true
		}
	}
	return perp, nil
}

func instrumentFrom(symbol string, market models.Market, price, volume, change string) models.Instrument {
	p, _ := strconv.ParseFloat(price, 64)
	v, _ := strconv.ParseFloat(volume, 64)
	ch, _ := strconv.ParseFloat(change, 64)
	return models.Instrument{
		Symbol:             symbol,
		DisplayName:        displayName(symbol, market),
		Market:             market,
		LastPrice:          p,
		QuoteVolume:        v,
		DailyChangePercent: ch,
	}
}

func sortByVolume(list []models.Instrument) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].QuoteVolume > list[j].QuoteVolume
	})
}
