package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"stock-watchdog/internal/domain"
)

type MarketDataService interface {
	FetchQuote(requestContext context.Context, symbol string) (domain.MarketQuote, error)
}

type YahooMarketDataService struct {
	BaseURL        string
	HTTPClient     *http.Client
	requestBreaker *gobreaker.CircuitBreaker
	requestLimiter *rate.Limiter
}

func NewYahooMarketDataService(baseURL string) *YahooMarketDataService {
	breakerSettings := gobreaker.Settings{Name: "yahoo-finance"}
	breakerSettings.Interval = 60 * time.Second
	breakerSettings.Timeout = 60 * time.Second
	breakerSettings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}

	return &YahooMarketDataService{
		BaseURL:        baseURL,
		HTTPClient:     &http.Client{Timeout: 8 * time.Second},
		requestBreaker: gobreaker.NewCircuitBreaker(breakerSettings),
		requestLimiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     string   `json:"symbol"`
			RegularMarketPrice         *float64 `json:"regularMarketPrice"`
			RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
			RegularMarketVolume        *int64   `json:"regularMarketVolume"`
			MarketCap                  *float64 `json:"marketCap"`
			TrailingPE                 *float64 `json:"trailingPE"`
			FiftyTwoWeekHigh           *float64 `json:"fiftyTwoWeekHigh"`
			FiftyTwoWeekLow            *float64 `json:"fiftyTwoWeekLow"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// FetchQuote gathers recent daily bars, the latest intraday bar and the static
// quote fields for one symbol. Each of the three provider calls may fail
// independently; the quote only errors when none of them produced data.
func (service *YahooMarketDataService) FetchQuote(requestContext context.Context, symbol string) (domain.MarketQuote, error) {
	quote := domain.MarketQuote{Symbol: symbol}

	dailyBars, dailyError := service.fetchChartBars(requestContext, symbol, "5d", "1d")
	if dailyError == nil {
		quote.DailyBars = dailyBars
	}

	intradayBars, intradayError := service.fetchChartBars(requestContext, symbol, "1d", "1m")
	if intradayError == nil && len(intradayBars) > 0 {
		latestBar := intradayBars[len(intradayBars)-1]
		quote.LatestIntradayBar = &latestBar
	}

	staticError := service.fetchStaticFields(requestContext, symbol, &quote)

	if dailyError != nil && intradayError != nil && staticError != nil {
		return domain.MarketQuote{}, fmt.Errorf("all market data requests failed for %s: %w", symbol, dailyError)
	}

	return quote, nil
}

func (service *YahooMarketDataService) fetchChartBars(requestContext context.Context, symbol string, dataRange string, interval string) ([]domain.PriceBar, error) {
	chartEndpoint, urlBuildError := url.Parse(service.BaseURL)
	if urlBuildError != nil {
		return nil, urlBuildError
	}
	chartEndpoint.Path = "/v8/finance/chart/" + symbol

	queryParameters := chartEndpoint.Query()
	queryParameters.Set("range", dataRange)
	queryParameters.Set("interval", interval)
	chartEndpoint.RawQuery = queryParameters.Encode()

	var parsedResponse yahooChartResponse
	if requestError := service.performRequest(requestContext, chartEndpoint.String(), &parsedResponse); requestError != nil {
		return nil, requestError
	}

	if parsedResponse.Chart.Error != nil {
		return nil, fmt.Errorf("chart request for %s failed: %s", symbol, parsedResponse.Chart.Error.Description)
	}
	if len(parsedResponse.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart response for %s contained no result", symbol)
	}

	chartResult := parsedResponse.Chart.Result[0]
	if len(chartResult.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart response for %s contained no quote series", symbol)
	}

	quoteSeries := chartResult.Indicators.Quote[0]
	priceBars := make([]domain.PriceBar, 0, len(chartResult.Timestamp))
	for barIndex, barTimestamp := range chartResult.Timestamp {
		if barIndex >= len(quoteSeries.Close) || quoteSeries.Close[barIndex] == nil {
			continue
		}
		priceBar := domain.PriceBar{
			Timestamp: time.Unix(barTimestamp, 0),
			Close:     *quoteSeries.Close[barIndex],
		}
		if barIndex < len(quoteSeries.Volume) && quoteSeries.Volume[barIndex] != nil {
			priceBar.Volume = *quoteSeries.Volume[barIndex]
		}
		priceBars = append(priceBars, priceBar)
	}

	return priceBars, nil
}

func (service *YahooMarketDataService) fetchStaticFields(requestContext context.Context, symbol string, quote *domain.MarketQuote) error {
	quoteEndpoint, urlBuildError := url.Parse(service.BaseURL)
	if urlBuildError != nil {
		return urlBuildError
	}
	quoteEndpoint.Path = "/v7/finance/quote"

	queryParameters := quoteEndpoint.Query()
	queryParameters.Set("symbols", symbol)
	quoteEndpoint.RawQuery = queryParameters.Encode()

	var parsedResponse yahooQuoteResponse
	if requestError := service.performRequest(requestContext, quoteEndpoint.String(), &parsedResponse); requestError != nil {
		return requestError
	}

	if len(parsedResponse.QuoteResponse.Result) == 0 {
		return fmt.Errorf("quote response for %s contained no result", symbol)
	}

	quoteResult := parsedResponse.QuoteResponse.Result[0]
	quote.CurrentPrice = quoteResult.RegularMarketPrice
	quote.PreviousClose = quoteResult.RegularMarketPreviousClose
	quote.Volume = quoteResult.RegularMarketVolume
	quote.MarketCap = quoteResult.MarketCap
	quote.TrailingPE = quoteResult.TrailingPE
	quote.FiftyTwoWeekHigh = quoteResult.FiftyTwoWeekHigh
	quote.FiftyTwoWeekLow = quoteResult.FiftyTwoWeekLow
	return nil
}

func (service *YahooMarketDataService) performRequest(requestContext context.Context, endpoint string, target any) error {
	if waitError := service.requestLimiter.Wait(requestContext); waitError != nil {
		return waitError
	}

	_, executeError := service.requestBreaker.Execute(func() (any, error) {
		request, requestBuildError := http.NewRequestWithContext(requestContext, http.MethodGet, endpoint, nil)
		if requestBuildError != nil {
			return nil, requestBuildError
		}
		request.Header.Set("User-Agent", "stock-watchdog/1.0")

		response, responseError := service.HTTPClient.Do(request)
		if responseError != nil {
			return nil, responseError
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("market data endpoint returned status %d", response.StatusCode)
		}

		return nil, json.NewDecoder(response.Body).Decode(target)
	})
	return executeError
}
