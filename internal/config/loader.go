package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the mediation
// portal service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	JoinBaseURL     string
	MagicLinkSecret string
	WaitingTTL      time.Duration
	TokenTTL        time.Duration
	SweepInterval   time.Duration
	MaxJoinAttempts int
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting every missing or invalid entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:mediation.db?_foreign_keys=on",
		JoinBaseURL:     "http://localhost:8080/join",
		WaitingTTL:      5 * time.Minute,
		TokenTTL:        time.Hour,
		SweepInterval:   30 * time.Second,
		MaxJoinAttempts: 3,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("MEDIATION_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "MEDIATION_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("MEDIATION_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if base := strings.TrimSpace(os.Getenv("MEDIATION_JOIN_BASE_URL")); base != "" {
		cfg.JoinBaseURL = strings.TrimRight(base, "/")
	}

	if secret := strings.TrimSpace(os.Getenv("MEDIATION_MAGIC_LINK_SECRET")); secret == "" {
		missing = append(missing, "MEDIATION_MAGIC_LINK_SECRET")
	} else {
		cfg.MagicLinkSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("MEDIATION_WAITING_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "MEDIATION_WAITING_TTL")
		} else {
			cfg.WaitingTTL = ttl
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("MEDIATION_TOKEN_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "MEDIATION_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if intervalValue := strings.TrimSpace(os.Getenv("MEDIATION_SWEEP_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "MEDIATION_SWEEP_INTERVAL")
		} else {
			cfg.SweepInterval = interval
		}
	}

	if attemptsValue := strings.TrimSpace(os.Getenv("MEDIATION_MAX_JOIN_ATTEMPTS")); attemptsValue != "" {
		attempts, err := strconv.Atoi(attemptsValue)
		if err != nil || attempts <= 0 {
			invalid = append(invalid, "MEDIATION_MAX_JOIN_ATTEMPTS")
		} else {
			cfg.MaxJoinAttempts = attempts
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
