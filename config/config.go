package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Telegram configuration
	TelegramBotToken string
	AdminChannelID   int64 // operator channel for withdrawal alerts
	MiniAppURL       string

	// Database configuration
	DatabaseURL string
	RedisURL    string

	// HTTP server
	ListenAddr string
	BaseURL    string // public URL, used by the keep-alive job

	// Reward ledger configuration
	RewardPerAd        int64
	ReferralBonusPerAd int64
	DailyAdLimit       int
	MinWithdrawal      int64
	DailyResetHour     int // hour in UTC when the ad-watch day rolls over (0-23)

	// Ad network configuration
	AdZoneID string

	// Plan gate: when enabled, ad watches require an active earning plan
	PlanGateEnabled  bool
	PlanDurationDays int // validity of a purchased plan

	// Operator notification send timeout
	NotifyTimeout time.Duration

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// Local development keeps secrets in a .env file
	_ = godotenv.Load()

	config := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		MiniAppURL:       os.Getenv("MINI_APP_URL"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		ListenAddr: os.Getenv("LISTEN_ADDR"),
		BaseURL:    os.Getenv("BASE_URL"),

		// Reward settings with defaults matching the live app
		RewardPerAd:        20,
		ReferralBonusPerAd: 2, // 10% of the ad reward
		DailyAdLimit:       30,
		MinWithdrawal:      2000,
		DailyResetHour:     0, // midnight UTC

		AdZoneID: os.Getenv("AD_ZONE_ID"),

		PlanGateEnabled:  os.Getenv("PLAN_GATE_ENABLED") == "true",
		PlanDurationDays: 7,

		NotifyTimeout: 5 * time.Second,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if v := os.Getenv("REWARD_PER_AD"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.RewardPerAd = parsed
		}
	}
	if v := os.Getenv("REFERRAL_BONUS_PER_AD"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.ReferralBonusPerAd = parsed
		}
	}
	if v := os.Getenv("DAILY_AD_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			config.DailyAdLimit = parsed
		}
	}
	if v := os.Getenv("MIN_WITHDRAWAL"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MinWithdrawal = parsed
		}
	}
	if v := os.Getenv("DAILY_RESET_HOUR"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 && parsed <= 23 {
			config.DailyResetHour = parsed
		}
	}
	if v := os.Getenv("PLAN_DURATION_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.PlanDurationDays = parsed
		}
	}
	if v := os.Getenv("NOTIFY_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			config.NotifyTimeout = parsed
		}
	}
	if v := os.Getenv("ADMIN_CHANNEL_ID"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.AdminChannelID = parsed
		}
	}

	if config.ListenAddr == "" {
		config.ListenAddr = ":8000"
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.TelegramBotToken == "" {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required")
		}
	}

	return config, nil
}
