package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"stock-watchdog/internal/domain"
)

// SnapshotCacheService owns the in-memory last-known-good cache. A fresh
// fetch overwrites the cached snapshot for its symbol; a failed fetch serves
// the cached value instead, and only fails when no cache exists either.
type SnapshotCacheService struct {
	MarketDataService MarketDataService
	FetchTimeout      time.Duration

	cacheMutex      sync.RWMutex
	cachedSnapshots map[string]domain.PriceSnapshot
	lastUpdate      map[string]time.Time
}

func NewSnapshotCacheService(marketDataService MarketDataService, fetchTimeoutSeconds int) *SnapshotCacheService {
	fetchTimeout := time.Duration(fetchTimeoutSeconds) * time.Second
	if fetchTimeout <= 0 {
		fetchTimeout = 6 * time.Second
	}
	return &SnapshotCacheService{
		MarketDataService: marketDataService,
		FetchTimeout:      fetchTimeout,
		cachedSnapshots:   make(map[string]domain.PriceSnapshot),
		lastUpdate:        make(map[string]time.Time),
	}
}

func (service *SnapshotCacheService) FetchSnapshot(requestContext context.Context, instrument domain.MonitoredInstrument) (domain.PriceSnapshot, domain.SnapshotOrigin, error) {
	quote, fetchError := service.MarketDataService.FetchQuote(requestContext, instrument.Symbol)
	if fetchError == nil {
		var snapshot domain.PriceSnapshot
		snapshot, fetchError = buildPriceSnapshot(instrument, quote)
		if fetchError == nil {
			service.storeSnapshot(snapshot)
			return snapshot, domain.SnapshotOriginFresh, nil
		}
	}

	log.Error().Err(fetchError).Str("symbol", instrument.Symbol).Msg("Error fetching market data")

	cachedSnapshot, cacheAvailable := service.CachedSnapshot(instrument.Symbol)
	if cacheAvailable {
		log.Warn().Str("symbol", instrument.Symbol).Msg("Returning cached snapshot due to fetch error")
		return cachedSnapshot, domain.SnapshotOriginStale, nil
	}

	return domain.PriceSnapshot{}, domain.SnapshotOriginFresh, fmt.Errorf("%s: %w", instrument.Symbol, domain.ErrFetchFailed)
}

// FetchAllSnapshots fans out one fetch per instrument. A symbol appears in
// the result iff it produced a fresh or cached snapshot; a symbol with
// neither is omitted from the run entirely and invisible downstream.
func (service *SnapshotCacheService) FetchAllSnapshots(requestContext context.Context, instruments []domain.MonitoredInstrument) map[string]domain.PriceSnapshot {
	snapshotsBySymbol := make(map[string]domain.PriceSnapshot, len(instruments))
	var resultMutex sync.Mutex
	var waitGroup sync.WaitGroup

	for _, instrument := range instruments {
		waitGroup.Add(1)
		go func(instrument domain.MonitoredInstrument) {
			defer waitGroup.Done()

			fetchContext, fetchCancel := context.WithTimeout(requestContext, service.FetchTimeout)
			defer fetchCancel()

			snapshot, origin, fetchError := service.FetchSnapshot(fetchContext, instrument)
			if fetchError != nil {
				log.Warn().Err(fetchError).Str("symbol", instrument.Symbol).Msg("Symbol omitted from this run")
				return
			}
			if origin == domain.SnapshotOriginStale {
				log.Warn().Str("symbol", instrument.Symbol).Msg("Using cached snapshot in multi-fetch due to error")
			}

			resultMutex.Lock()
			snapshotsBySymbol[instrument.Symbol] = snapshot
			resultMutex.Unlock()
		}(instrument)
	}

	waitGroup.Wait()
	return snapshotsBySymbol
}

func (service *SnapshotCacheService) CachedSnapshot(symbol string) (domain.PriceSnapshot, bool) {
	service.cacheMutex.RLock()
	defer service.cacheMutex.RUnlock()
	cachedSnapshot, cacheAvailable := service.cachedSnapshots[symbol]
	return cachedSnapshot, cacheAvailable
}

func (service *SnapshotCacheService) storeSnapshot(snapshot domain.PriceSnapshot) {
	service.cacheMutex.Lock()
	defer service.cacheMutex.Unlock()
	service.cachedSnapshots[snapshot.Symbol] = snapshot
	service.lastUpdate[snapshot.Symbol] = time.Now()
}

func buildPriceSnapshot(instrument domain.MonitoredInstrument, quote domain.MarketQuote) (domain.PriceSnapshot, error) {
	var currentPrice float64
	var currentVolume int64

	if quote.LatestIntradayBar != nil {
		currentPrice = quote.LatestIntradayBar.Close
		currentVolume = quote.LatestIntradayBar.Volume
	} else {
		switch {
		case quote.CurrentPrice != nil:
			currentPrice = *quote.CurrentPrice
		case quote.PreviousClose != nil:
			currentPrice = *quote.PreviousClose
		default:
			return domain.PriceSnapshot{}, fmt.Errorf("no price data available for %s", instrument.Symbol)
		}
		if quote.Volume != nil {
			currentVolume = *quote.Volume
		}
	}

	previousClose := currentPrice
	if quote.PreviousClose != nil {
		previousClose = *quote.PreviousClose
	}
	yesterdayClose := previousClose
	if len(quote.DailyBars) >= 2 {
		yesterdayClose = quote.DailyBars[len(quote.DailyBars)-2].Close
		previousClose = quote.DailyBars[len(quote.DailyBars)-1].Close
	}

	currentChange := currentPrice - previousClose
	currentChangePercent := 0.0
	if previousClose != 0 {
		currentChangePercent = (currentChange / previousClose) * 100
	}

	yesterdayChange := 0.0
	yesterdayChangePercent := 0.0
	if len(quote.DailyBars) >= 3 {
		dayBeforeYesterdayClose := quote.DailyBars[len(quote.DailyBars)-3].Close
		yesterdayChange = yesterdayClose - dayBeforeYesterdayClose
		if dayBeforeYesterdayClose != 0 {
			yesterdayChangePercent = (yesterdayChange / dayBeforeYesterdayClose) * 100
		}
	}

	return domain.PriceSnapshot{
		Symbol:                 instrument.Symbol,
		CurrentPrice:           roundToTwoDecimals(currentPrice),
		PreviousClose:          roundToTwoDecimals(previousClose),
		YesterdayClose:         roundToTwoDecimals(yesterdayClose),
		Change:                 roundToTwoDecimals(currentChange),
		ChangePercent:          roundToTwoDecimals(currentChangePercent),
		YesterdayChange:        roundToTwoDecimals(yesterdayChange),
		YesterdayChangePercent: roundToTwoDecimals(yesterdayChangePercent),
		Volume:                 currentVolume,
		MarketCap:              quote.MarketCap,
		PERatio:                quote.TrailingPE,
		FiftyTwoWeekHigh:       quote.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:        quote.FiftyTwoWeekLow,
		SecurityCover:          ComputeSecurityCover(instrument, currentPrice),
		Timestamp:              time.Now(),
	}, nil
}
