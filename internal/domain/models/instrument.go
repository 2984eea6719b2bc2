package models

// Instrument is one tradable pair resolved from the exchange universe,
// carrying the 24h ticker statistics it was ranked by.
type Instrument struct {
	Symbol             string  `json:"symbol"`       // exchange symbol, e.g. BTCUSDT
	DisplayName        string  `json:"display_name"` // e.g. BTC/USDT or BTC/USDT:USDT
	Market             Market  `json:"market"`
	LastPrice          float64 `json:"last_price"`
	QuoteVolume        float64 `json:"quote_volume"`
	DailyChangePercent float64 `json:"daily_change_percent"`
}

// TickerQuote is a lightweight live quote for the market snapshot.
type TickerQuote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}
