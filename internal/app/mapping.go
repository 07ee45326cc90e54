package app

import (
	"strings"
	"time"

	"courtbot/internal/bsky"
	"courtbot/internal/config"
	"courtbot/internal/jobs"
	"courtbot/internal/refresh"
	"courtbot/internal/scheduler"
	"courtbot/internal/storage"
	logx "courtbot/pkg/logx"
)

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: config.Enabled(cfg.Logging.Console, true),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

type remoteConfig struct {
	Host    string
	Timeout time.Duration
}

func mapRemote(cfg *config.Config) (remoteConfig, error) {
	timeout, err := config.ParseDurationOrDefault("bluesky.timeout", cfg.Bluesky.Timeout, 30*time.Second)
	if err != nil {
		return remoteConfig{}, err
	}
	host := strings.TrimSpace(cfg.Bluesky.Host)
	if host == "" {
		host = bsky.DefaultHost
	}
	return remoteConfig{Host: host, Timeout: timeout}, nil
}

func mapPublish(cfg *config.Config) (bsky.Config, error) {
	def := bsky.DefaultConfig()
	p := cfg.Publish

	out := def
	out.Identifier = strings.TrimSpace(cfg.Bluesky.Identifier)
	out.Password = cfg.Bluesky.Password
	out.HashtagSuffix = p.HashtagSuffix()
	if len(p.Langs) > 0 {
		out.Langs = p.Langs
	}
	if p.RetryMax > 0 {
		out.RetryMax = p.RetryMax
	}

	var err error
	if out.RetryBase, err = config.ParseDurationOrDefault("publish.retry_base", p.RetryBase, def.RetryBase); err != nil {
		return bsky.Config{}, err
	}
	if out.RetryMaxDelay, err = config.ParseDurationOrDefault("publish.retry_max_delay", p.RetryMaxDelay, def.RetryMaxDelay); err != nil {
		return bsky.Config{}, err
	}
	if out.MinInterval, err = config.ParseDurationField("publish.min_interval", p.MinInterval); err != nil {
		return bsky.Config{}, err
	}
	return out, nil
}

func mapJobs(cfg *config.Config) jobs.Config {
	out := jobs.DefaultConfig()
	out.Suffix = cfg.Publish.HashtagSuffix()
	if cfg.Publish.MaxPostLength > 0 {
		out.MaxPostLength = cfg.Publish.MaxPostLength
	}
	return out
}

func mapCooldown(cfg *config.Config) (time.Duration, error) {
	return config.ParseDurationOrDefault("guard.cooldown", cfg.Guard.Cooldown, 5*time.Minute)
}

func mapScheduler(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:  config.Enabled(cfg.Scheduler.Enabled, true),
		Timezone: strings.TrimSpace(cfg.Scheduler.Timezone),
	}
}

func mapRefresh(cfg *config.Config) (refresh.Config, error) {
	out := refresh.DefaultConfig()
	r := cfg.Refresh
	if c := strings.TrimSpace(r.Command); c != "" {
		out.Command = c
		out.Args = r.Args
	} else if len(r.Args) > 0 {
		out.Args = r.Args
	}
	out.Dir = strings.TrimSpace(r.Dir)
	var err error
	if out.Timeout, err = config.ParseDurationOrDefault("refresh.timeout", r.Timeout, out.Timeout); err != nil {
		return refresh.Config{}, err
	}
	return out, nil
}

// mapStorage returns enabled=false when no audit store is configured.
func mapStorage(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path), BusyTimeout: busy}, true, nil
}

// schedule is one scheduler entry derived from config.
type schedule struct {
	name    string
	spec    string
	enabled bool
}

func mapSchedules(cfg *config.Config) []schedule {
	j := cfg.Jobs
	return []schedule{
		{jobs.LastGames, j.LastGames.ScheduleOr(config.DefaultLastGamesSchedule), config.Enabled(j.LastGames.Enabled, true)},
		{jobs.Standings, j.Standings.ScheduleOr(config.DefaultStandingsSchedule), config.Enabled(j.Standings.Enabled, true)},
		{jobs.PlannedGames, j.PlannedGames.ScheduleOr(config.DefaultPlannedGamesSchedule), config.Enabled(j.PlannedGames.Enabled, true)},
		{refreshSchedule, orDefault(cfg.Refresh.Schedule, config.DefaultRefreshSchedule), config.Enabled(cfg.Refresh.Enabled, true)},
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
