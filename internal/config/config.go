// Package config reads server settings from the environment.
// main loads a .env file (godotenv) before calling Load.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the server.
type Config struct {
	Port         string
	LogLevel     string
	DBPath       string
	JWTSecret    string
	JWTTTL       time.Duration
	CookieName   string
	ClientOrigin string
	Production   bool
	DailySalt    string
	DailyPreset  string
	PresetsFile  string
	GameTTL      time.Duration // live games untouched this long are evicted
}

// Load reads the environment, applying development defaults.
func Load() Config {
	return Config{
		Port:         envStr("PORT", "5175"),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		DBPath:       envStr("DB_PATH", "./data/app.db"),
		JWTSecret:    envStr("JWT_SECRET", "dev_secret_change_me"),
		JWTTTL:       time.Duration(envInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		CookieName:   envStr("COOKIE_NAME", "mines_token"),
		ClientOrigin: envStr("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:   os.Getenv("NODE_ENV") == "production",
		DailySalt:    envStr("DAILY_SALT", "local_dev_salt"),
		DailyPreset:  envStr("DAILY_PRESET", "intermediate"),
		PresetsFile:  os.Getenv("MINES_PRESETS_FILE"),
		GameTTL:      time.Duration(envInt("GAME_TTL_MINUTES", 60)) * time.Minute,
	}
}

// envStr returns the value of k or def if unset/empty.
func envStr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as an int, falling back to def when unset or malformed.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
