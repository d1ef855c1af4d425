package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type config struct {
	Addr             string
	APIKey           string
	BaseURL          string
	Model            string
	SessionTTL       time.Duration
	EvictionInterval time.Duration
	OracleTimeout    time.Duration
	HistoryWindow    int
	AllowedOrigins   []string
	TTSBackend       string
	MediaDir         string
}

func loadConfig() (*config, error) {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := &config{
		Addr:             envOr("VOICEFORM_ADDR", ":8000"),
		APIKey:           os.Getenv("OPENAI_API_KEY"),
		BaseURL:          os.Getenv("OPENAI_BASE_URL"),
		Model:            envOr("OPENAI_MODEL", "gpt-4o-mini"),
		SessionTTL:       durationOr("VOICEFORM_SESSION_TTL", 30*time.Minute),
		EvictionInterval: durationOr("VOICEFORM_EVICTION_INTERVAL", time.Minute),
		OracleTimeout:    durationOr("VOICEFORM_ORACLE_TIMEOUT", 15*time.Second),
		HistoryWindow:    12,
		AllowedOrigins:   splitOr("VOICEFORM_ALLOWED_ORIGINS", []string{"*"}),
		TTSBackend:       envOr("VOICEFORM_TTS_BACKEND", "mock"),
		MediaDir:         envOr("VOICEFORM_MEDIA_DIR", "./media"),
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitOr(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
