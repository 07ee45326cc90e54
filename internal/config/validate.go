package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks values that would otherwise fail later at wiring time.
// Schedule syntax is checked by the scheduler (see ConfigManager.SetValidator).
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	dur := func(path, raw string) {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}
	dur("bluesky.timeout", cfg.Bluesky.Timeout)
	dur("publish.retry_base", cfg.Publish.RetryBase)
	dur("publish.retry_max_delay", cfg.Publish.RetryMaxDelay)
	dur("publish.min_interval", cfg.Publish.MinInterval)
	dur("guard.cooldown", cfg.Guard.Cooldown)
	dur("refresh.timeout", cfg.Refresh.Timeout)

	if cfg.Publish.RetryMax < 0 {
		errs = append(errs, errors.New("publish.retry_max must be >= 0"))
	}
	if cfg.Publish.MaxPostLength < 0 {
		errs = append(errs, errors.New("publish.max_post_length must be >= 0"))
	}
	if s := cfg.Storage; s != nil {
		dur("storage.busy_timeout", s.BusyTimeout)
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				errs = append(errs, fmt.Errorf("storage.path is required for driver %q", s.Driver))
			}
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	return errors.Join(errs...)
}
