package domain

import "strings"

type MonitoredInstrument struct {
	Symbol                 string
	CompanyName            string
	QuantityFactor         float64
	LoanOutstanding        float64
	SecurityCoverThreshold float64
}

func (instrument MonitoredInstrument) MatchesSymbol(symbol string) bool {
	return strings.EqualFold(instrument.Symbol, symbol)
}
