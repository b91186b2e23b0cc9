package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"stock-watchdog/internal/config"
	"stock-watchdog/internal/domain"
)

type ConfigurationSource interface {
	Load() (*config.WatchdogConfiguration, error)
}

type AlertSenderFactory func(sender config.SenderConfiguration) AlertSender

// TransportValidator is implemented by alert senders that can probe their
// transport without sending a message.
type TransportValidator interface {
	ValidateTransport() error
}

type ManualAlertSummary struct {
	Symbol             string `json:"symbol"`
	RecipientsNotified int    `json:"recipients_notified"`
	Message            string `json:"message"`
}

// WatchdogService drives the three-stage pipeline: fetch snapshots, plan
// notifications per recipient, dispatch. Configuration is re-read from disk
// on every run. Failures inside a scheduled or threat-scan cycle are logged
// and swallowed so later cycles keep running.
type WatchdogService struct {
	ConfigurationSource  ConfigurationSource
	SnapshotCacheService *SnapshotCacheService
	PlannerService       *NotificationPlannerService
	DispatchService      *NotificationDispatchService
	AlertSenderFactory   AlertSenderFactory

	cronRunner *cron.Cron
}

func NewWatchdogService(configurationSource ConfigurationSource, snapshotCacheService *SnapshotCacheService, plannerService *NotificationPlannerService, dispatchService *NotificationDispatchService, alertSenderFactory AlertSenderFactory) *WatchdogService {
	if alertSenderFactory == nil {
		alertSenderFactory = func(sender config.SenderConfiguration) AlertSender {
			return NewEmailDeliveryService(sender)
		}
	}
	return &WatchdogService{
		ConfigurationSource:  configurationSource,
		SnapshotCacheService: snapshotCacheService,
		PlannerService:       plannerService,
		DispatchService:      dispatchService,
		AlertSenderFactory:   alertSenderFactory,
	}
}

func (service *WatchdogService) StartSchedules(applicationContext context.Context) error {
	configuration, loadError := service.ConfigurationSource.Load()
	if loadError != nil {
		return loadError
	}

	scheduleLocation := resolveTimezone(configuration.Timezone)
	cronRunner := cron.New(cron.WithLocation(scheduleLocation))

	for _, scheduleTime := range configuration.ScheduleTimes {
		hour, minute, parseError := parseClockTime(scheduleTime)
		if parseError != nil {
			log.Warn().Err(parseError).Str("time", scheduleTime).Msg("Skipping invalid schedule entry")
			continue
		}
		cronSpec := fmt.Sprintf("%d %d * * *", minute, hour)
		if _, addError := cronRunner.AddFunc(cronSpec, func() {
			service.RunScheduledReport(applicationContext)
		}); addError != nil {
			log.Warn().Err(addError).Str("time", scheduleTime).Msg("Could not register daily report job")
		}
	}

	intervalSpec := fmt.Sprintf("@every %s", configuration.ThreatScanInterval)
	if _, addError := cronRunner.AddFunc(intervalSpec, func() {
		service.RunThreatScan(applicationContext)
	}); addError != nil {
		return fmt.Errorf("could not register threat scan job: %w", addError)
	}

	cronRunner.Start()
	service.cronRunner = cronRunner
	log.Info().
		Int("daily_reports", len(configuration.ScheduleTimes)).
		Str("timezone", scheduleLocation.String()).
		Str("threat_scan_interval", configuration.ThreatScanInterval.String()).
		Msg("Schedules started")

	go func() {
		<-applicationContext.Done()
		<-cronRunner.Stop().Done()
		log.Info().Msg("Schedules stopped")
	}()

	return nil
}

func (service *WatchdogService) RunScheduledReport(applicationContext context.Context) {
	service.runPipeline(applicationContext, domain.ScheduledReportTrigger())
}

func (service *WatchdogService) RunThreatScan(applicationContext context.Context) {
	service.runPipeline(applicationContext, domain.ThreatScanTrigger())
}

func (service *WatchdogService) runPipeline(applicationContext context.Context, trigger domain.TriggerContext) {
	configuration, loadError := service.ConfigurationSource.Load()
	if loadError != nil {
		log.Error().Err(loadError).Str("trigger", trigger.String()).Msg("Pipeline run aborted: configuration load failed")
		return
	}

	if len(configuration.Instruments) == 0 || len(configuration.Recipients) == 0 {
		log.Info().Str("trigger", trigger.String()).Msg("No stocks or recipients configured")
		return
	}

	snapshotsBySymbol := service.SnapshotCacheService.FetchAllSnapshots(applicationContext, configuration.Instruments)
	plans := service.PlannerService.PlanNotifications(snapshotsBySymbol, configuration.Instruments, configuration.Recipients, trigger)
	alertSender := service.AlertSenderFactory(configuration.Sender)
	deliveredCount := service.DispatchService.DispatchAll(alertSender, plans, configuration.CurrencySymbol)

	log.Info().
		Str("trigger", trigger.String()).
		Int("symbols", len(snapshotsBySymbol)).
		Int("planned", len(plans)).
		Int("delivered", deliveredCount).
		Msg("Pipeline run complete")
}

func (service *WatchdogService) TriggerManualAlert(requestContext context.Context, symbol string) (ManualAlertSummary, error) {
	configuration, loadError := service.ConfigurationSource.Load()
	if loadError != nil {
		return ManualAlertSummary{}, loadError
	}

	instrument, instrumentConfigured := configuration.FindInstrument(symbol)
	if !instrumentConfigured {
		return ManualAlertSummary{}, fmt.Errorf("%s: %w", strings.ToUpper(symbol), domain.ErrInstrumentUnknown)
	}

	snapshotsBySymbol := service.SnapshotCacheService.FetchAllSnapshots(requestContext, []domain.MonitoredInstrument{instrument})
	if len(snapshotsBySymbol) == 0 {
		return ManualAlertSummary{}, fmt.Errorf("%s: %w", instrument.Symbol, domain.ErrFetchFailed)
	}

	trigger := domain.ManualAlertTrigger(instrument.Symbol)
	plans := service.PlannerService.PlanNotifications(snapshotsBySymbol, []domain.MonitoredInstrument{instrument}, configuration.Recipients, trigger)
	if len(plans) == 0 {
		return ManualAlertSummary{
			Symbol:  instrument.Symbol,
			Message: fmt.Sprintf("Alert for %s processed, but no recipients are subscribed or have manual alerts enabled.", instrument.Symbol),
		}, nil
	}

	alertSender := service.AlertSenderFactory(configuration.Sender)
	deliveredCount := service.DispatchService.DispatchAll(alertSender, plans, configuration.CurrencySymbol)

	return ManualAlertSummary{
		Symbol:             instrument.Symbol,
		RecipientsNotified: deliveredCount,
		Message:            fmt.Sprintf("Alert for %s sent to %d recipient(s).", instrument.Symbol, deliveredCount),
	}, nil
}

// CheckAlertTransport probes the configured mail transport with the current
// sender settings. Senders that cannot validate themselves pass vacuously.
func (service *WatchdogService) CheckAlertTransport() error {
	configuration, loadError := service.ConfigurationSource.Load()
	if loadError != nil {
		return loadError
	}

	alertSender := service.AlertSenderFactory(configuration.Sender)
	validator, supportsValidation := alertSender.(TransportValidator)
	if !supportsValidation {
		return nil
	}
	return validator.ValidateTransport()
}

func (service *WatchdogService) GetSnapshot(requestContext context.Context, symbol string) (domain.PriceSnapshot, error) {
	configuration, loadError := service.ConfigurationSource.Load()
	if loadError != nil {
		return domain.PriceSnapshot{}, loadError
	}

	instrument, instrumentConfigured := configuration.FindInstrument(symbol)
	if !instrumentConfigured {
		return domain.PriceSnapshot{}, fmt.Errorf("%s: %w", strings.ToUpper(symbol), domain.ErrInstrumentUnknown)
	}

	fetchContext, fetchCancel := context.WithTimeout(requestContext, service.SnapshotCacheService.FetchTimeout)
	defer fetchCancel()

	snapshot, _, fetchError := service.SnapshotCacheService.FetchSnapshot(fetchContext, instrument)
	return snapshot, fetchError
}

func (service *WatchdogService) GetAllSnapshots(requestContext context.Context) (map[string]domain.PriceSnapshot, error) {
	configuration, loadError := service.ConfigurationSource.Load()
	if loadError != nil {
		return nil, loadError
	}
	return service.SnapshotCacheService.FetchAllSnapshots(requestContext, configuration.Instruments), nil
}

func resolveTimezone(timezoneName string) *time.Location {
	trimmedName := strings.TrimSpace(timezoneName)
	if trimmedName == "" {
		return time.Local
	}
	location, locationError := time.LoadLocation(trimmedName)
	if locationError != nil {
		log.Warn().Str("timezone", trimmedName).Msg("Invalid timezone, falling back to local time")
		return time.Local
	}
	return location
}

func parseClockTime(clockTime string) (int, int, error) {
	hourText, minuteText, separatorFound := strings.Cut(strings.TrimSpace(clockTime), ":")
	if !separatorFound {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", clockTime)
	}
	hour, hourError := strconv.Atoi(hourText)
	if hourError != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", clockTime)
	}
	minute, minuteError := strconv.Atoi(minuteText)
	if minuteError != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", clockTime)
	}
	return hour, minute, nil
}
