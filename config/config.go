package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/zedbingo/bingo-engine/utils/logger"
)

// Config carries everything the engine reads from the environment.
type Config struct {
	DatabaseURL string
	Port        string

	MinPlayers      int
	CountdownSec    int
	CallIntervalSec int
	CommissionRate  float64
	Stakes          []float64

	RecoveryCronSpec string
	AllowedOrigins   []string
	Debug            bool
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, reading environment variables")
	}

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Port:             envString("PORT", "4000"),
		MinPlayers:       envInt("MIN_PLAYERS", 2),
		CountdownSec:     envInt("COUNTDOWN_SEC", 60),
		CallIntervalSec:  envInt("CALL_INTERVAL_SEC", 3),
		CommissionRate:   envFloat("COMMISSION_RATE", 0.10),
		Stakes:           envFloats("STAKES", []float64{10, 20, 50, 100}),
		RecoveryCronSpec: envString("RECOVERY_CRON", "@every 5m"),
		AllowedOrigins:   strings.Split(envString("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		Debug:            envBool("DEBUG", false),
	}
	return cfg, nil
}

func envString(key, fallback string) string {
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
		logger.Warnf("invalid %s=%q, using %d", key, v, fallback)
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		logger.Warnf("invalid %s=%q, using %.2f", key, v, fallback)
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloats(key string, fallback []float64) []float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []float64
	for _, part := range strings.Split(v, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			logger.Warnf("invalid %s entry %q, using defaults", key, part)
			return fallback
		}
		out = append(out, f)
	}
	return out
}
