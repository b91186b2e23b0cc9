package domain

import "errors"

var (
	ErrFetchFailed           = errors.New("no fresh or cached market data available")
	ErrInstrumentUnknown     = errors.New("instrument is not in the monitored configuration")
	ErrDeliveryFailed        = errors.New("alert delivery failed")
	ErrTransportUnconfigured = errors.New("mail transport credentials are not configured")
)
