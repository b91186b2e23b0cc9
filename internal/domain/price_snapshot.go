package domain

import "time"

type PriceSnapshot struct {
	Symbol                 string    `json:"symbol"`
	CurrentPrice           float64   `json:"current_price"`
	PreviousClose          float64   `json:"previous_close"`
	YesterdayClose         float64   `json:"yesterday_close"`
	Change                 float64   `json:"change"`
	ChangePercent          float64   `json:"change_percent"`
	YesterdayChange        float64   `json:"yesterday_change"`
	YesterdayChangePercent float64   `json:"yesterday_change_percent"`
	Volume                 int64     `json:"volume"`
	MarketCap              *float64  `json:"market_cap"`
	PERatio                *float64  `json:"pe_ratio"`
	FiftyTwoWeekHigh       *float64  `json:"52_week_high"`
	FiftyTwoWeekLow        *float64  `json:"52_week_low"`
	SecurityCover          float64   `json:"security_cover"`
	Timestamp              time.Time `json:"timestamp"`
}

// SnapshotOrigin records whether a fetch produced fresh provider data or fell
// back to the last cached snapshot. The origin is not part of the snapshot
// itself; downstream consumers cannot distinguish a stale snapshot.
type SnapshotOrigin int

const (
	SnapshotOriginFresh SnapshotOrigin = iota
	SnapshotOriginStale
)

func (origin SnapshotOrigin) String() string {
	if origin == SnapshotOriginStale {
		return "stale"
	}
	return "fresh"
}
