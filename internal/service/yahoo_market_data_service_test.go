package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chartResponseBody(timestamps []int64, closes []float64, volumes []int64) string {
	timestampParts := make([]string, len(timestamps))
	closeParts := make([]string, len(closes))
	volumeParts := make([]string, len(volumes))
	for index := range timestamps {
		timestampParts[index] = fmt.Sprintf("%d", timestamps[index])
		closeParts[index] = fmt.Sprintf("%g", closes[index])
		volumeParts[index] = fmt.Sprintf("%d", volumes[index])
	}
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"regularMarketPrice":%g,"chartPreviousClose":%g},"timestamp":[%s],"indicators":{"quote":[{"close":[%s],"volume":[%s]}]}}],"error":null}}`,
		closes[len(closes)-1], closes[0],
		strings.Join(timestampParts, ","), strings.Join(closeParts, ","), strings.Join(volumeParts, ","))
}

func quoteResponseBody(symbol string, price float64, previousClose float64) string {
	return fmt.Sprintf(`{"quoteResponse":{"result":[{"symbol":%q,"regularMarketPrice":%g,"regularMarketPreviousClose":%g,"regularMarketVolume":125000,"marketCap":640000000,"trailingPE":18.4,"fiftyTwoWeekHigh":%g,"fiftyTwoWeekLow":%g}],"error":null}}`,
		symbol, price, previousClose, price*2, price/2)
}

func TestFetchQuote_CombinesChartAndStaticFields(t *testing.T) {
	marketServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(request.URL.Path, "/v8/finance/chart/"):
			if request.URL.Query().Get("interval") == "1d" {
				fmt.Fprint(responseWriter, chartResponseBody(
					[]int64{1700000000, 1700086400, 1700172800},
					[]float64{5.20, 5.30, 5.60},
					[]int64{900, 1100, 1000}))
				return
			}
			fmt.Fprint(responseWriter, chartResponseBody(
				[]int64{1700200000, 1700200060},
				[]float64{5.48, 5.50},
				[]int64{300, 4200}))
		case request.URL.Path == "/v7/finance/quote":
			fmt.Fprint(responseWriter, quoteResponseBody(request.URL.Query().Get("symbols"), 5.50, 5.60))
		default:
			http.NotFound(responseWriter, request)
		}
	}))
	defer marketServer.Close()

	marketDataService := NewYahooMarketDataService(marketServer.URL)
	quote, fetchError := marketDataService.FetchQuote(context.Background(), "STAR.NS")

	require.NoError(t, fetchError)
	assert.Equal(t, "STAR.NS", quote.Symbol)

	require.Len(t, quote.DailyBars, 3)
	assert.InDelta(t, 5.60, quote.DailyBars[2].Close, 0.001)

	require.NotNil(t, quote.LatestIntradayBar)
	assert.InDelta(t, 5.50, quote.LatestIntradayBar.Close, 0.001)
	assert.Equal(t, int64(4200), quote.LatestIntradayBar.Volume)

	require.NotNil(t, quote.CurrentPrice)
	assert.InDelta(t, 5.50, *quote.CurrentPrice, 0.001)
	require.NotNil(t, quote.PreviousClose)
	assert.InDelta(t, 5.60, *quote.PreviousClose, 0.001)
	require.NotNil(t, quote.MarketCap)
	require.NotNil(t, quote.TrailingPE)
}

func TestFetchQuote_ToleratesPartialProviderFailure(t *testing.T) {
	marketServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if strings.HasPrefix(request.URL.Path, "/v8/finance/chart/") {
			http.Error(responseWriter, "upstream unavailable", http.StatusBadGateway)
			return
		}
		responseWriter.Header().Set("Content-Type", "application/json")
		fmt.Fprint(responseWriter, quoteResponseBody("STAR.NS", 7.00, 6.80))
	}))
	defer marketServer.Close()

	marketDataService := NewYahooMarketDataService(marketServer.URL)
	quote, fetchError := marketDataService.FetchQuote(context.Background(), "STAR.NS")

	require.NoError(t, fetchError, "static fields alone are enough for a quote")
	assert.Empty(t, quote.DailyBars)
	assert.Nil(t, quote.LatestIntradayBar)
	require.NotNil(t, quote.CurrentPrice)
	assert.InDelta(t, 7.00, *quote.CurrentPrice, 0.001)
}

func TestFetchQuote_FailsWhenEveryRequestFails(t *testing.T) {
	marketServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		http.Error(responseWriter, "upstream unavailable", http.StatusBadGateway)
	}))
	defer marketServer.Close()

	marketDataService := NewYahooMarketDataService(marketServer.URL)
	_, fetchError := marketDataService.FetchQuote(context.Background(), "STAR.NS")

	require.Error(t, fetchError)
	assert.Contains(t, fetchError.Error(), "STAR.NS")
}

func TestFetchQuote_ProviderErrorPayload(t *testing.T) {
	marketServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(request.URL.Path, "/v8/finance/chart/") {
			fmt.Fprint(responseWriter, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
			return
		}
		fmt.Fprint(responseWriter, `{"quoteResponse":{"result":[],"error":null}}`)
	}))
	defer marketServer.Close()

	marketDataService := NewYahooMarketDataService(marketServer.URL)
	_, fetchError := marketDataService.FetchQuote(context.Background(), "GHOST.NS")

	require.Error(t, fetchError)
	assert.Contains(t, fetchError.Error(), "delisted")
}
