package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-watchdog/internal/config"
	"stock-watchdog/internal/domain"
	"stock-watchdog/internal/service"
)

type staticConfigurationSource struct {
	configuration *config.WatchdogConfiguration
}

func (source *staticConfigurationSource) Load() (*config.WatchdogConfiguration, error) {
	return source.configuration, nil
}

type stubMarketDataService struct {
	quotesBySymbol map[string]domain.MarketQuote
}

func (stub *stubMarketDataService) FetchQuote(requestContext context.Context, symbol string) (domain.MarketQuote, error) {
	quote, available := stub.quotesBySymbol[symbol]
	if !available {
		return domain.MarketQuote{}, errors.New("provider down")
	}
	return quote, nil
}

type recordingAlertSender struct {
	deliveredTo    []string
	transportError error
}

func (sender *recordingAlertSender) SendAlert(recipient domain.RecipientProfile, subject string, htmlBody string) error {
	sender.deliveredTo = append(sender.deliveredTo, recipient.Email)
	return nil
}

func (sender *recordingAlertSender) ValidateTransport() error {
	return sender.transportError
}

func newTestServer(t *testing.T) (*Server, *recordingAlertSender) {
	t.Helper()

	currentPrice := 5.50
	marketData := &stubMarketDataService{quotesBySymbol: map[string]domain.MarketQuote{
		"STAR.NS": {Symbol: "STAR.NS", CurrentPrice: &currentPrice},
	}}

	configurationSource := &staticConfigurationSource{configuration: &config.WatchdogConfiguration{
		CurrencySymbol: "₹",
		Instruments: []domain.MonitoredInstrument{
			{Symbol: "STAR.NS", CompanyName: "Strides Pharma", QuantityFactor: 1000000, LoanOutstanding: 4000000, SecurityCoverThreshold: 1.5},
		},
		Recipients: []domain.RecipientProfile{
			{
				Email:             "trader@yourcompany.com",
				SubscribedSymbols: []string{"STAR.NS"},
				Preferences:       domain.AlertPreferences{ScheduledReports: true, ThreatAlerts: true, ManualAlerts: true},
			},
		},
	}}

	alertSender := &recordingAlertSender{}
	watchdogService := service.NewWatchdogService(
		configurationSource,
		service.NewSnapshotCacheService(marketData, 6),
		service.NewNotificationPlannerService(),
		service.NewNotificationDispatchService(service.NewReportRenderService()),
		func(sender config.SenderConfiguration) service.AlertSender { return alertSender },
	)

	return NewServer(watchdogService), alertSender
}

func performRequest(handler http.Handler, method string, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func TestHandleRoot(t *testing.T) {
	server, _ := newTestServer(t)
	recorder := performRequest(server.RegisterRoutes(), http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, recorder.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, "Stock Price Watchdog API", payload["message"])
	assert.Equal(t, "running", payload["status"])
}

func TestHandleHealthCheck(t *testing.T) {
	server, _ := newTestServer(t)
	recorder := performRequest(server.RegisterRoutes(), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, recorder.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "ok", payload["smtp_transport"])
}

func TestHandleHealthCheck_ReportsTransportFailure(t *testing.T) {
	server, alertSender := newTestServer(t)
	alertSender.transportError = domain.ErrTransportUnconfigured

	recorder := performRequest(server.RegisterRoutes(), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, recorder.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, domain.ErrTransportUnconfigured.Error(), payload["smtp_transport"])
}

func TestHandleSnapshot(t *testing.T) {
	server, _ := newTestServer(t)
	recorder := performRequest(server.RegisterRoutes(), http.MethodGet, "/stocks/STAR.NS")

	require.Equal(t, http.StatusOK, recorder.Code)

	var snapshot domain.PriceSnapshot
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &snapshot))
	assert.Equal(t, "STAR.NS", snapshot.Symbol)
	assert.InDelta(t, 5.50, snapshot.CurrentPrice, 0.001)
	assert.InDelta(t, 1.38, snapshot.SecurityCover, 0.001)
}

func TestHandleSnapshot_UnknownSymbol(t *testing.T) {
	server, _ := newTestServer(t)
	recorder := performRequest(server.RegisterRoutes(), http.MethodGet, "/stocks/MISSING.NS")

	require.Equal(t, http.StatusNotFound, recorder.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, "Stock MISSING.NS not found in configuration.", payload["detail"])
}

func TestHandleAllSnapshots(t *testing.T) {
	server, _ := newTestServer(t)
	recorder := performRequest(server.RegisterRoutes(), http.MethodGet, "/stocks")

	require.Equal(t, http.StatusOK, recorder.Code)

	var snapshotsBySymbol map[string]domain.PriceSnapshot
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &snapshotsBySymbol))
	assert.Contains(t, snapshotsBySymbol, "STAR.NS")
}

func TestHandleManualAlert(t *testing.T) {
	server, alertSender := newTestServer(t)
	recorder := performRequest(server.RegisterRoutes(), http.MethodPost, "/alerts/STAR.NS")

	require.Equal(t, http.StatusOK, recorder.Code)

	var summary service.ManualAlertSummary
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &summary))
	assert.Equal(t, "STAR.NS", summary.Symbol)
	assert.Equal(t, 1, summary.RecipientsNotified)
	assert.Equal(t, "Alert for STAR.NS sent to 1 recipient(s).", summary.Message)
	assert.Equal(t, []string{"trader@yourcompany.com"}, alertSender.deliveredTo)
}

func TestHandleManualAlert_UnknownSymbol(t *testing.T) {
	server, alertSender := newTestServer(t)
	recorder := performRequest(server.RegisterRoutes(), http.MethodPost, "/alerts/MISSING.NS")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Empty(t, alertSender.deliveredTo)
}
