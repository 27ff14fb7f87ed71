package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionMaxAge int

	// Fetch
	FetchTimeout  time.Duration
	FetchMaxSize  int64
	RenderEnabled bool

	// Check
	CheckRetryCount   int
	CheckRetryBackoff time.Duration

	// Scan
	ScanInterval      time.Duration
	ScanMaxConcurrent int
	ScheduleTolerance time.Duration
	ClaimStaleAfter   time.Duration

	// Notification
	NotifyWebhookURL  string
	NotifyDedupWindow time.Duration
	TelegramBotToken  string
	TelegramChatID    int64

	// Retention
	RetentionDays int

	// Rate Limit
	RateLimitGeneral int
	RateLimitItemReg int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 30*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.RenderEnabled = getEnvBool("RENDER_ENABLED", false)
	cfg.CheckRetryCount = getEnvInt("CHECK_RETRY_COUNT", 3)
	cfg.CheckRetryBackoff = getEnvDuration("CHECK_RETRY_BACKOFF", 2*time.Second)
	cfg.ScanInterval = getEnvDuration("SCAN_INTERVAL", 1*time.Hour)
	cfg.ScanMaxConcurrent = getEnvInt("SCAN_MAX_CONCURRENT", 10)
	cfg.ScheduleTolerance = getEnvDuration("SCHEDULE_TOLERANCE", 30*time.Minute)
	cfg.ClaimStaleAfter = getEnvDuration("CLAIM_STALE_AFTER", 5*time.Minute)
	cfg.NotifyWebhookURL = getEnvString("NOTIFY_WEBHOOK_URL", "")
	cfg.NotifyDedupWindow = getEnvDuration("NOTIFY_DEDUP_WINDOW", 30*time.Minute)
	cfg.TelegramBotToken = getEnvString("TELEGRAM_BOT_TOKEN", "")
	cfg.TelegramChatID = getEnvInt64("TELEGRAM_CHAT_ID", 0)
	cfg.RetentionDays = getEnvInt("RETENTION_DAYS", 365)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitItemReg = getEnvInt("RATE_LIMIT_ITEM_REG", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
