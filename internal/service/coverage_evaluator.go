package service

import (
	"math"

	"stock-watchdog/internal/domain"
)

// ComputeSecurityCover is collateral value over outstanding loan. A zero or
// negative loan yields zero cover, which is never a breach.
func ComputeSecurityCover(instrument domain.MonitoredInstrument, currentPrice float64) float64 {
	if instrument.LoanOutstanding <= 0 {
		return 0
	}
	return roundToTwoDecimals((instrument.QuantityFactor * currentPrice) / instrument.LoanOutstanding)
}

// EvaluateBreach is strict: a cover ratio exactly at the threshold holds.
// An instrument with no outstanding loan cannot breach.
func EvaluateBreach(snapshot domain.PriceSnapshot, instrument domain.MonitoredInstrument) bool {
	if instrument.LoanOutstanding <= 0 {
		return false
	}
	return snapshot.SecurityCover < instrument.SecurityCoverThreshold
}

func AnyBreach(snapshots []domain.PriceSnapshot, instruments []domain.MonitoredInstrument) bool {
	instrumentsBySymbol := make(map[string]domain.MonitoredInstrument, len(instruments))
	for _, instrument := range instruments {
		instrumentsBySymbol[instrument.Symbol] = instrument
	}

	for _, snapshot := range snapshots {
		instrument, configured := instrumentsBySymbol[snapshot.Symbol]
		if configured && EvaluateBreach(snapshot, instrument) {
			return true
		}
	}
	return false
}

func roundToTwoDecimals(value float64) float64 {
	return math.Round(value*100) / 100
}
