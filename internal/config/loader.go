package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the scheduling service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	DefaultTimezone string
	MaxRangeDays    int
	HorizonDays     int
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields and reports
// every invalid value at once instead of stopping at the first.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:scheduler.db",
		DefaultTimezone: "Asia/Taipei",
		MaxRangeDays:    31,
		HorizonDays:     90,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if tzName := strings.TrimSpace(os.Getenv("SCHEDULER_DEFAULT_TIMEZONE")); tzName != "" {
		if _, err := time.LoadLocation(tzName); err != nil {
			invalid = append(invalid, "SCHEDULER_DEFAULT_TIMEZONE")
		} else {
			cfg.DefaultTimezone = tzName
		}
	}

	if rangeValue := strings.TrimSpace(os.Getenv("SCHEDULER_MAX_RANGE_DAYS")); rangeValue != "" {
		days, err := strconv.Atoi(rangeValue)
		if err != nil || days <= 0 {
			invalid = append(invalid, "SCHEDULER_MAX_RANGE_DAYS")
		} else {
			cfg.MaxRangeDays = days
		}
	}

	if horizonValue := strings.TrimSpace(os.Getenv("SCHEDULER_HORIZON_DAYS")); horizonValue != "" {
		days, err := strconv.Atoi(horizonValue)
		if err != nil || days <= 0 {
			invalid = append(invalid, "SCHEDULER_HORIZON_DAYS")
		} else {
			cfg.HorizonDays = days
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
