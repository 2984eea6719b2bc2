package models

// ScanRequest is the scan-start request body. Defaults match a
// conservative perpetual scan of the twenty largest instruments.
type ScanRequest struct {
	InstrumentCount int      `json:"instrument_count" default:"20" validate:"min=1,max=500"`
	Timeframes      []string `json:"timeframes" validate:"required,min=1,dive,required"`
	AdaptationSpeed string   `json:"adaptation_speed" default:"normal" validate:"oneof=slow normal fast"`
	MinBarsBetween  int      `json:"min_bars_between" default:"3" validate:"min=0"`
	ScannerVariant  string   `json:"scanner_variant" default:"ama_pro" validate:"oneof=ama_pro qwen both"`
	Market          string   `json:"market" default:"perp" validate:"oneof=spot perp both"`
}

// Parameters converts the validated request into scan parameters.
func (r *ScanRequest) Parameters() ScanParameters {
	return ScanParameters{
		InstrumentCount: r.InstrumentCount,
		Timeframes:      r.Timeframes,
		AdaptationSpeed: AdaptationSpeed(r.AdaptationSpeed),
		MinBarsBetween:  r.MinBarsBetween,
		Variant:         Variant(r.ScannerVariant),
		Market:          Market(r.Market),
	}
}

// MarketDataRequest bounds the market snapshot query.
type MarketDataRequest struct {
	Count  int    `query:"count" default:"10" validate:"min=1,max=100"`
	Market string `query:"market" default:"spot" validate:"oneof=spot perp both"`
}
