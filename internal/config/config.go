package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             int
	NatsURL          string
	NatsToken        string
	DatabaseURL      string
	RedisURL         string
	LogLevel         string
	APIToken         string
	ExportDir        string
	PollInterval     time.Duration
	SettleDelay      time.Duration
	Debounce         time.Duration
	ClipboardSubject string
	ClipboardTimeout time.Duration
}

func Load() Config {
	return Config{
		Port:             envInt("CHATMARK_PORT", 8760),
		NatsURL:          envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:        envStr("NATS_TOKEN", ""),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		RedisURL:         envStr("REDIS_URL", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		APIToken:         envStr("CHATMARK_API_TOKEN", ""),
		ExportDir:        envStr("CHATMARK_EXPORT_DIR", "./exports"),
		PollInterval:     envDuration("CHATMARK_POLL_INTERVAL", 500*time.Millisecond),
		SettleDelay:      envDuration("CHATMARK_SETTLE_DELAY", 800*time.Millisecond),
		Debounce:         envDuration("CHATMARK_DEBOUNCE", 400*time.Millisecond),
		ClipboardSubject: envStr("CHATMARK_CLIPBOARD_SUBJECT", "chatmark.bridge.clipboard"),
		ClipboardTimeout: envDuration("CHATMARK_CLIPBOARD_TIMEOUT", 2*time.Second),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
