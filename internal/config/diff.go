package config

import (
	"reflect"
	"sort"
	"strings"

	logx "courtbot/pkg/logx"
)

// SummarizeConfigChange lists the sections that differ between two configs
// plus safe attrs for logging. Credentials are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	ob, nb := oldCfg.Bluesky, newCfg.Bluesky
	if strings.TrimSpace(ob.Host) != strings.TrimSpace(nb.Host) ||
		ob.Identifier != nb.Identifier ||
		ob.Password != nb.Password ||
		ob.Timeout != nb.Timeout {
		changed = append(changed, "bluesky")
		attrs = append(attrs,
			logx.String("bluesky.host", strings.TrimSpace(nb.Host)),
			logx.Bool("bluesky.identifier_changed", ob.Identifier != nb.Identifier),
			logx.Bool("bluesky.password_changed", ob.Password != nb.Password),
		)
	}

	if !reflect.DeepEqual(oldCfg.Publish, newCfg.Publish) {
		changed = append(changed, "publish")
		attrs = append(attrs,
			logx.String("publish.hashtag", strings.TrimSpace(newCfg.Publish.HashtagSuffix())),
			logx.Int("publish.retry_max", newCfg.Publish.RetryMax),
			logx.String("publish.min_interval", newCfg.Publish.MinInterval),
		)
	}

	if oldCfg.Content != newCfg.Content {
		changed = append(changed, "content")
		attrs = append(attrs, logx.String("content.dir", newCfg.Content.Dir))
	}

	if oldCfg.Guard != newCfg.Guard {
		changed = append(changed, "guard")
		attrs = append(attrs, logx.String("guard.cooldown", newCfg.Guard.Cooldown))
	}

	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", Enabled(newCfg.Scheduler.Enabled, true)),
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		)
	}

	if !reflect.DeepEqual(oldCfg.Jobs, newCfg.Jobs) {
		changed = append(changed, "jobs")
		attrs = append(attrs,
			logx.String("jobs.last_games", newCfg.Jobs.LastGames.ScheduleOr(DefaultLastGamesSchedule)),
			logx.String("jobs.standings", newCfg.Jobs.Standings.ScheduleOr(DefaultStandingsSchedule)),
			logx.String("jobs.planned_games", newCfg.Jobs.PlannedGames.ScheduleOr(DefaultPlannedGamesSchedule)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Refresh, newCfg.Refresh) {
		changed = append(changed, "refresh")
		attrs = append(attrs,
			logx.Bool("refresh.enabled", Enabled(newCfg.Refresh.Enabled, true)),
			logx.String("refresh.schedule", newCfg.Refresh.Schedule),
		)
	}

	// Nil means disabled.
	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if oS != nS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", Enabled(newCfg.Logging.Console, true)),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
