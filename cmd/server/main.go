package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stock-watchdog/internal/config"
	"stock-watchdog/internal/httpserver"
	"stock-watchdog/internal/service"
)

func main() {
	_ = godotenv.Load()

	serverConfiguration := config.LoadServerConfiguration()
	configureLogging(serverConfiguration.LogFilePath)

	log.Info().Msg("Starting Stock Watchdog service")

	configurationManager := config.NewConfigurationManager(serverConfiguration.ConfigurationFilePath)
	if _, loadError := configurationManager.Load(); loadError != nil {
		log.Fatal().Err(loadError).Msg("Could not load watchdog configuration")
	}

	marketDataService := service.NewYahooMarketDataService(serverConfiguration.MarketDataBaseURL)
	snapshotCacheService := service.NewSnapshotCacheService(marketDataService, serverConfiguration.FetchTimeoutSeconds)
	plannerService := service.NewNotificationPlannerService()
	renderService := service.NewReportRenderService()
	dispatchService := service.NewNotificationDispatchService(renderService)
	watchdogService := service.NewWatchdogService(configurationManager, snapshotCacheService, plannerService, dispatchService, nil)

	applicationContext, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if scheduleError := watchdogService.StartSchedules(applicationContext); scheduleError != nil {
		log.Fatal().Err(scheduleError).Msg("Could not start schedules")
	}

	server := httpserver.NewServer(watchdogService)
	router := server.RegisterRoutes()

	serverAddress := ":" + serverConfiguration.ServerPort
	httpServer := &http.Server{Addr: serverAddress, Handler: router}

	go func() {
		log.Info().Str("address", serverAddress).Msg("Server running")
		startError := httpServer.ListenAndServe()
		if startError != nil && startError != http.ErrServerClosed {
			log.Fatal().Err(startError).Msg("Server error")
		}
	}()

	<-applicationContext.Done()
	shutdownContext, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if shutdownError := httpServer.Shutdown(shutdownContext); shutdownError != nil {
		log.Error().Err(shutdownError).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Stock Watchdog stopped")
}

func configureLogging(logFilePath string) {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	writers := []io.Writer{consoleWriter}

	if logFilePath != "" {
		if directoryError := os.MkdirAll(filepath.Dir(logFilePath), 0o755); directoryError == nil {
			logFile, openError := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if openError == nil {
				writers = append(writers, logFile)
			}
		}
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}
