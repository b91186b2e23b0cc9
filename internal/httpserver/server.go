package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"stock-watchdog/internal/domain"
	"stock-watchdog/internal/service"
)

type Server struct {
	WatchdogService *service.WatchdogService
}

func NewServer(watchdogService *service.WatchdogService) *Server {
	return &Server{WatchdogService: watchdogService}
}

func (server *Server) RegisterRoutes() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", server.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", server.handleHealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/stocks", server.handleAllSnapshots).Methods(http.MethodGet)
	router.HandleFunc("/stocks/{symbol}", server.handleSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/alerts/{symbol}", server.handleManualAlert).Methods(http.MethodPost)
	return router
}

func (server *Server) handleRoot(responseWriter http.ResponseWriter, request *http.Request) {
	writeJSONResponse(responseWriter, http.StatusOK, map[string]string{
		"message": "Stock Price Watchdog API",
		"status":  "running",
	})
}

func (server *Server) handleHealthCheck(responseWriter http.ResponseWriter, request *http.Request) {
	healthPayload := map[string]string{
		"status":         "ok",
		"smtp_transport": "ok",
	}
	if transportError := server.WatchdogService.CheckAlertTransport(); transportError != nil {
		log.Warn().Err(transportError).Msg("Mail transport check failed")
		healthPayload["smtp_transport"] = transportError.Error()
	}
	writeJSONResponse(responseWriter, http.StatusOK, healthPayload)
}

func (server *Server) handleSnapshot(responseWriter http.ResponseWriter, request *http.Request) {
	requestedSymbol := mux.Vars(request)["symbol"]

	snapshot, fetchError := server.WatchdogService.GetSnapshot(request.Context(), requestedSymbol)
	if fetchError != nil {
		server.writeErrorResponse(responseWriter, requestedSymbol, fetchError)
		return
	}

	writeJSONResponse(responseWriter, http.StatusOK, snapshot)
}

func (server *Server) handleAllSnapshots(responseWriter http.ResponseWriter, request *http.Request) {
	snapshotsBySymbol, fetchError := server.WatchdogService.GetAllSnapshots(request.Context())
	if fetchError != nil {
		log.Error().Err(fetchError).Msg("Could not fetch snapshots")
		writeJSONResponse(responseWriter, http.StatusInternalServerError, errorDetail{Detail: "Error fetching data for all stocks: " + fetchError.Error()})
		return
	}

	writeJSONResponse(responseWriter, http.StatusOK, snapshotsBySymbol)
}

func (server *Server) handleManualAlert(responseWriter http.ResponseWriter, request *http.Request) {
	requestedSymbol := mux.Vars(request)["symbol"]

	alertSummary, alertError := server.WatchdogService.TriggerManualAlert(request.Context(), requestedSymbol)
	if alertError != nil {
		server.writeErrorResponse(responseWriter, requestedSymbol, alertError)
		return
	}

	writeJSONResponse(responseWriter, http.StatusOK, alertSummary)
}

type errorDetail struct {
	Detail string `json:"detail"`
}

func (server *Server) writeErrorResponse(responseWriter http.ResponseWriter, requestedSymbol string, requestError error) {
	switch {
	case errors.Is(requestError, domain.ErrInstrumentUnknown):
		writeJSONResponse(responseWriter, http.StatusNotFound, errorDetail{Detail: "Stock " + requestedSymbol + " not found in configuration."})
	case errors.Is(requestError, domain.ErrFetchFailed):
		log.Error().Err(requestError).Str("symbol", requestedSymbol).Msg("Market data unavailable")
		writeJSONResponse(responseWriter, http.StatusBadGateway, errorDetail{Detail: "Error fetching data for " + requestedSymbol + ": " + requestError.Error()})
	default:
		log.Error().Err(requestError).Str("symbol", requestedSymbol).Msg("Request failed")
		writeJSONResponse(responseWriter, http.StatusInternalServerError, errorDetail{Detail: requestError.Error()})
	}
}

func writeJSONResponse(responseWriter http.ResponseWriter, statusCode int, payload any) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(statusCode)
	if encodeError := json.NewEncoder(responseWriter).Encode(payload); encodeError != nil {
		log.Error().Err(encodeError).Msg("Could not encode response")
	}
}
