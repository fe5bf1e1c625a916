package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken   string
	GeminiAPIKey    string
	GeminiModel     string
	DatabaseURL     string
	DefaultTimezone string
	DefaultLang     string
	NotifyLookahead time.Duration // how far ahead reminders look
	NotifyTolerance time.Duration // slack around the lookahead boundary
	NotifyTick      time.Duration // scheduler tick interval
	DigestTime      string        // HH:MM daily digest slot, empty disables
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:   strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		GeminiAPIKey:    strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:     strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DefaultTimezone: strings.TrimSpace(os.Getenv("DEFAULT_TIMEZONE")),
		DefaultLang:     strings.TrimSpace(os.Getenv("DEFAULT_LANG")),
		NotifyLookahead: parseMinutes(os.Getenv("NOTIFY_LOOKAHEAD_MINUTES")),
		NotifyTolerance: parseMinutes(os.Getenv("NOTIFY_TOLERANCE_MINUTES")),
		NotifyTick:      parseMinutes(os.Getenv("NOTIFY_TICK_MINUTES")),
		DigestTime:      strings.TrimSpace(os.Getenv("DIGEST_TIME")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "family_assistant.db"
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "Asia/Jerusalem"
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = "en"
	}
	if cfg.NotifyLookahead == 0 {
		cfg.NotifyLookahead = 15 * time.Minute
	}
	if cfg.NotifyTolerance == 0 {
		cfg.NotifyTolerance = time.Minute
	}
	if cfg.NotifyTick == 0 {
		cfg.NotifyTick = time.Minute
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.GeminiAPIKey == "" {
		return cfg, fmt.Errorf("GEMINI_API_KEY is required")
	}

	return cfg, nil
}

func parseMinutes(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}
