package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"stock-watchdog/internal/domain"
)

// WatchdogConfiguration is the fully resolved configuration for one pipeline
// run. It is rebuilt from disk on every invocation so edits take effect
// without a restart.
type WatchdogConfiguration struct {
	CurrencySymbol     string
	Instruments        []domain.MonitoredInstrument
	Sender             SenderConfiguration
	Recipients         []domain.RecipientProfile
	ScheduleTimes      []string
	Timezone           string
	ThreatScanInterval time.Duration
}

type SenderConfiguration struct {
	FromEmail    string
	FromName     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	UseTLS       bool
}

func (configuration *WatchdogConfiguration) FindInstrument(symbol string) (domain.MonitoredInstrument, bool) {
	for _, instrument := range configuration.Instruments {
		if instrument.MatchesSymbol(symbol) {
			return instrument, true
		}
	}
	return domain.MonitoredInstrument{}, false
}

type configurationFile struct {
	CurrencySymbol            *string           `yaml:"currency_symbol"`
	Stocks                    []instrumentEntry `yaml:"stocks"`
	EmailSender               senderEntry       `yaml:"email_sender"`
	Recipients                []recipientEntry  `yaml:"recipients"`
	Schedule                  scheduleEntry     `yaml:"schedule"`
	ThreatScanIntervalMinutes *int              `yaml:"threat_scan_interval_minutes"`
}

type instrumentEntry struct {
	Symbol                 string  `yaml:"symbol"`
	CompanyName            string  `yaml:"company_name"`
	QuantityFactor         float64 `yaml:"quantity_factor"`
	LoanOutstanding        float64 `yaml:"loan_outstanding"`
	SecurityCoverThreshold float64 `yaml:"security_cover_threshold"`
}

type senderEntry struct {
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     *int   `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
	UseTLS       *bool  `yaml:"use_tls"`
}

type recipientEntry struct {
	Email             string           `yaml:"email"`
	Name              string           `yaml:"name"`
	SubscribedSymbols []string         `yaml:"subscribed_symbols"`
	CC                []string         `yaml:"cc"`
	BCC               []string         `yaml:"bcc"`
	AlertPreferences  *preferenceEntry `yaml:"alert_preferences"`
}

type preferenceEntry struct {
	ScheduledReports *bool `yaml:"scheduled_reports"`
	ThreatAlerts     *bool `yaml:"threat_alerts"`
	ManualAlerts     *bool `yaml:"manual_alerts"`
}

type scheduleEntry struct {
	DailyReports []string `yaml:"daily_reports"`
	Timezone     string   `yaml:"timezone"`
}

type ConfigurationManager struct {
	Path string
}

func NewConfigurationManager(path string) *ConfigurationManager {
	return &ConfigurationManager{Path: path}
}

func (manager *ConfigurationManager) Load() (*WatchdogConfiguration, error) {
	fileContents, readError := os.ReadFile(manager.Path)
	if os.IsNotExist(readError) {
		if createError := manager.writeDefaultConfigurationFile(); createError != nil {
			return nil, fmt.Errorf("could not create default configuration: %w", createError)
		}
		log.Info().Str("path", manager.Path).Msg("Created default configuration file")
		fileContents, readError = os.ReadFile(manager.Path)
	}
	if readError != nil {
		return nil, fmt.Errorf("could not read configuration file %s: %w", manager.Path, readError)
	}

	var parsedFile configurationFile
	if unmarshalError := yaml.Unmarshal(fileContents, &parsedFile); unmarshalError != nil {
		return nil, fmt.Errorf("could not parse configuration file %s: %w", manager.Path, unmarshalError)
	}

	return resolveConfiguration(parsedFile), nil
}

func resolveConfiguration(parsedFile configurationFile) *WatchdogConfiguration {
	configuration := &WatchdogConfiguration{
		CurrencySymbol:     stringWithDefault(parsedFile.CurrencySymbol, "₹"),
		ScheduleTimes:      parsedFile.Schedule.DailyReports,
		Timezone:           parsedFile.Schedule.Timezone,
		ThreatScanInterval: time.Duration(intWithDefault(parsedFile.ThreatScanIntervalMinutes, 5)) * time.Minute,
	}

	for _, stockEntry := range parsedFile.Stocks {
		configuration.Instruments = append(configuration.Instruments, domain.MonitoredInstrument{
			Symbol:                 stockEntry.Symbol,
			CompanyName:            stockEntry.CompanyName,
			QuantityFactor:         stockEntry.QuantityFactor,
			LoanOutstanding:        stockEntry.LoanOutstanding,
			SecurityCoverThreshold: stockEntry.SecurityCoverThreshold,
		})
	}

	configuration.Sender = SenderConfiguration{
		FromEmail:    parsedFile.EmailSender.FromEmail,
		FromName:     parsedFile.EmailSender.FromName,
		SMTPHost:     parsedFile.EmailSender.SMTPHost,
		SMTPPort:     intWithDefault(parsedFile.EmailSender.SMTPPort, 587),
		SMTPUsername: parsedFile.EmailSender.SMTPUsername,
		SMTPPassword: parsedFile.EmailSender.SMTPPassword,
		UseTLS:       boolWithDefault(parsedFile.EmailSender.UseTLS, true),
	}
	if configuration.Sender.SMTPPassword == "" {
		configuration.Sender.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	}
	if configuration.Sender.SMTPUsername == "" {
		configuration.Sender.SMTPUsername = configuration.Sender.FromEmail
	}

	for _, entry := range parsedFile.Recipients {
		configuration.Recipients = append(configuration.Recipients, domain.RecipientProfile{
			Email:             entry.Email,
			Name:              entry.Name,
			SubscribedSymbols: entry.SubscribedSymbols,
			CC:                entry.CC,
			BCC:               entry.BCC,
			Preferences:       resolvePreferences(entry.AlertPreferences),
		})
	}

	return configuration
}

// Every alert preference defaults to enabled; recipients opt out explicitly.
func resolvePreferences(entry *preferenceEntry) domain.AlertPreferences {
	if entry == nil {
		return domain.AlertPreferences{ScheduledReports: true, ThreatAlerts: true, ManualAlerts: true}
	}
	return domain.AlertPreferences{
		ScheduledReports: boolWithDefault(entry.ScheduledReports, true),
		ThreatAlerts:     boolWithDefault(entry.ThreatAlerts, true),
		ManualAlerts:     boolWithDefault(entry.ManualAlerts, true),
	}
}

func (manager *ConfigurationManager) writeDefaultConfigurationFile() error {
	parentDirectory := filepath.Dir(manager.Path)
	if parentDirectory != "." {
		if directoryError := os.MkdirAll(parentDirectory, 0o755); directoryError != nil {
			return directoryError
		}
	}
	return os.WriteFile(manager.Path, []byte(defaultConfigurationYAML), 0o644)
}

const defaultConfigurationYAML = `currency_symbol: "₹"
stocks:
  - symbol: STAR.NS
    company_name: Strides Pharma Science Limited
    quantity_factor: 1150000
    loan_outstanding: 4800000
    security_cover_threshold: 1.7
email_sender:
  from_email: noreply@yourdomain.com
  from_name: Stock Watchdog
  smtp_host: smtp.hostinger.com
  smtp_port: 587
  smtp_username: noreply@yourdomain.com
  smtp_password: ""
  use_tls: true
recipients:
  - email: trader@yourcompany.com
    subscribed_symbols:
      - STAR.NS
schedule:
  daily_reports:
    - "09:30"
    - "12:30"
    - "16:00"
  timezone: US/Eastern
`

func stringWithDefault(value *string, defaultValue string) string {
	if value == nil || *value == "" {
		return defaultValue
	}
	return *value
}

func intWithDefault(value *int, defaultValue int) int {
	if value == nil {
		return defaultValue
	}
	return *value
}

func boolWithDefault(value *bool, defaultValue bool) bool {
	if value == nil {
		return defaultValue
	}
	return *value
}
