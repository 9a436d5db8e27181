// package config loads application configuration from environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ikramov/sitebot/internal/logger"
)

// ErrUserAccountRequired is returned by operations that the Telegram API
// restricts to real user accounts when the user identity is not configured.
var ErrUserAccountRequired = errors.New("operation requires a user account: set TELEGRAM_PHONE_NUMBER and TELEGRAM_USE_USER_ACCOUNT=true")

// Config holds all application configuration.
//
// Telegram credentials are deliberately not validated at load time: a missing
// value degrades the operations that need it instead of stopping the process.
type Config struct {
	// telegram
	APIID           int
	APIHash         string
	BotToken        string
	PhoneNumber     string
	AdminID         string
	WebhookURL      string
	BotSessionName  string
	UserSessionName string
	UseUserAccount  bool

	// storage
	DatabaseURL string
	DataDir     string

	// server
	HTTPPort int

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment (and .env, if present) with
// documented defaults. It never fails; absent required values are logged as
// warnings and surface later as capability gates.
func Load() *Config {
	// .env is optional, same as running with plain environment variables
	_ = godotenv.Load()

	cfg := &Config{
		APIID:           getEnvInt("TELEGRAM_API_ID", 0),
		APIHash:         getEnv("TELEGRAM_API_HASH", ""),
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		PhoneNumber:     getEnv("TELEGRAM_PHONE_NUMBER", ""),
		AdminID:         getEnv("TELEGRAM_ADMIN_ID", "739089730"),
		WebhookURL:      getEnv("TELEGRAM_WEBHOOK_URL", "https://ikramov.uz/bot/update/"),
		BotSessionName:  getEnv("TELEGRAM_SESSION_NAME", "bot_session"),
		UserSessionName: getEnv("TELEGRAM_USER_SESSION_NAME", "user_session"),
		UseUserAccount:  getEnvBool("TELEGRAM_USE_USER_ACCOUNT", false),
		DatabaseURL:     getEnv("DATABASE_URL", "./data/contact.db"),
		DataDir:         getEnv("DATA_DIR", "./data"),
		HTTPPort:        getEnvInt("HTTP_PORT", 8000),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}

	cfg.warnMissing()

	return cfg
}

// warnMissing logs a warning for every unset required credential.
func (c *Config) warnMissing() {
	log := logger.Get()
	if c.APIID == 0 {
		log.Warn().Msg("config: TELEGRAM_API_ID is not set")
	}
	if c.APIHash == "" {
		log.Warn().Msg("config: TELEGRAM_API_HASH is not set")
	}
	if c.BotToken == "" {
		log.Warn().Msg("config: TELEGRAM_BOT_TOKEN is not set")
	}
	if c.AdminID == "" {
		log.Warn().Msg("config: TELEGRAM_ADMIN_ID is not set")
	}
	if c.WebhookURL == "" {
		log.Warn().Msg("config: TELEGRAM_WEBHOOK_URL is not set")
	}
}

// IsConfigured reports whether the minimum credential set for any telegram
// operation is present. Phone number is checked separately per operation.
func (c *Config) IsConfigured() bool {
	return c.APIID != 0 &&
		c.APIHash != "" &&
		c.BotToken != "" &&
		c.AdminID != "" &&
		c.WebhookURL != ""
}

// RequireUserAccount gates operations that need a user-identity session.
// Bot tokens cannot enumerate dialogs per Telegram API policy, and the user
// identity must be opted into explicitly.
func (c *Config) RequireUserAccount() error {
	if c.PhoneNumber == "" || !c.UseUserAccount {
		return ErrUserAccountRequired
	}
	return nil
}

// AdminChatID parses the configured admin id as a numeric chat id.
func (c *Config) AdminChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.AdminID), 10, 64)
	if err != nil {
		return 0, errors.New("invalid TELEGRAM_ADMIN_ID: " + c.AdminID)
	}
	return id, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
