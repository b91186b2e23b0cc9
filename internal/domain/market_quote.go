package domain

import "time"

type PriceBar struct {
	Timestamp time.Time
	Close     float64
	Volume    int64
}

// MarketQuote is the raw provider result for one symbol. Any subset of the
// fields may be absent; the snapshot layer decides what it can derive.
type MarketQuote struct {
	Symbol            string
	DailyBars         []PriceBar
	LatestIntradayBar *PriceBar
	CurrentPrice      *float64
	PreviousClose     *float64
	Volume            *int64
	MarketCap         *float64
	TrailingPE        *float64
	FiftyTwoWeekHigh  *float64
	FiftyTwoWeekLow   *float64
}
