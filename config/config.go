package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"go_market_monitor/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port        string
	Environment string

	TelegramBotToken   string
	NotificationChatID string

	SensexSymbol string
	NiftySymbol  string

	CheckInterval     time.Duration
	MorningUpdateTime string
	MarketTimezone    string

	Tiers models.TierSet
}

var AppConfig *Config

// LoadConfig loads environment variables and validates the alert tier set.
// A misconfigured tier set is rejected here so the process never starts with
// an inconsistent severity ordering.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		NotificationChatID: getEnv("NOTIFICATION_CHAT_ID", ""),
		SensexSymbol:       getEnv("SENSEX_SYMBOL", "^BSESN"),
		NiftySymbol:        getEnv("NIFTY_SYMBOL", "^NSEI"),
		CheckInterval:      time.Duration(getEnvInt("CHECK_INTERVAL", 300)) * time.Second,
		MorningUpdateTime:  getEnv("MORNING_UPDATE_TIME", "09:15"),
		MarketTimezone:     getEnv("MARKET_TIMEZONE", "Asia/Kolkata"),
	}

	if config.CheckInterval <= 0 {
		return nil, fmt.Errorf("CHECK_INTERVAL must be a positive number of seconds")
	}

	thresholds, err := loadThresholds()
	if err != nil {
		return nil, err
	}
	tiers, err := models.NewTierSet(thresholds)
	if err != nil {
		return nil, fmt.Errorf("invalid alert tier configuration: %w", err)
	}
	config.Tiers = tiers

	AppConfig = config
	return config, nil
}

// loadThresholds reads the three signed tier thresholds. A negative value
// triggers on downward moves of at least that magnitude, a positive value on
// upward moves. Defaults reproduce the downward-only -1%/-3%/-6% tiers.
func loadThresholds() ([]decimal.Decimal, error) {
	keys := []string{"ALERT_THRESHOLD_1", "ALERT_THRESHOLD_2", "ALERT_THRESHOLD_3"}
	defaults := []string{"-0.01", "-0.03", "-0.06"}

	thresholds := make([]decimal.Decimal, 0, len(keys))
	for i, key := range keys {
		raw := getEnv(key, defaults[i])
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		thresholds = append(thresholds, value)
	}
	return thresholds, nil
}

// MarketLocation resolves the configured market timezone. When tzdata is not
// available it falls back to a fixed IST offset rather than silently running
// the digest on server time.
func (c *Config) MarketLocation() *time.Location {
	loc, err := time.LoadLocation(c.MarketTimezone)
	if err != nil {
		log.Printf("Invalid MARKET_TIMEZONE %q, falling back to fixed IST offset: %v", c.MarketTimezone, err)
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid %s %q, using default %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}
