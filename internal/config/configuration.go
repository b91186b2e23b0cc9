package config

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type ServerConfiguration struct {
	ServerPort            string
	ConfigurationFilePath string
	LogFilePath           string
	MarketDataBaseURL     string
	FetchTimeoutSeconds   int
}

func LoadServerConfiguration() ServerConfiguration {
	configuration := ServerConfiguration{
		ServerPort:            getEnvironmentValueWithDefault("API_PORT", "8000"),
		ConfigurationFilePath: getEnvironmentValueWithDefault("WATCHDOG_CONFIG_PATH", "config.yaml"),
		LogFilePath:           getEnvironmentValueWithDefault("LOG_FILE_PATH", "logs/app.log"),
		MarketDataBaseURL:     getEnvironmentValueWithDefault("MARKET_DATA_BASE_URL", "https://query1.finance.yahoo.com"),
		FetchTimeoutSeconds:   parseIntegerWithDefault("FETCH_TIMEOUT_SECONDS", 6),
	}

	log.Info().
		Str("port", configuration.ServerPort).
		Str("config", configuration.ConfigurationFilePath).
		Msg("Loaded server configuration")

	return configuration
}

func parseIntegerWithDefault(variableName string, defaultValue int) int {
	environmentValue := os.Getenv(variableName)
	if environmentValue == "" {
		return defaultValue
	}

	parsedInteger, parsingError := strconv.Atoi(environmentValue)
	if parsingError != nil {
		log.Warn().Str("variable", variableName).Int("default", defaultValue).Msg("Invalid integer, using default")
		return defaultValue
	}

	return parsedInteger
}

func getEnvironmentValueWithDefault(variableName string, defaultValue string) string {
	environmentValue := os.Getenv(variableName)
	if environmentValue == "" {
		return defaultValue
	}

	return environmentValue
}
