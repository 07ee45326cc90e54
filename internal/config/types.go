package config

// Config is the on-disk configuration (YAML or JSON).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "4h").
// Pointer booleans distinguish "omitted" (use the default) from an explicit false.
type Config struct {
	Bluesky   BlueskyConfig   `json:"bluesky"`
	Publish   PublishConfig   `json:"publish"`
	Content   ContentConfig   `json:"content"`
	Guard     GuardConfig     `json:"guard"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Jobs      JobsConfig      `json:"jobs"`
	Refresh   RefreshConfig   `json:"refresh"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Logging   LoggingConfig   `json:"logging"`
}

type BlueskyConfig struct {
	// Host defaults to https://bsky.social.
	Host       string `json:"host,omitempty"`
	Identifier string `json:"identifier"`
	// Password is an app password. BLUESKY_PASSWORD overrides it.
	Password string `json:"password"`
	Timeout  string `json:"timeout,omitempty"`
}

// PublishConfig tunes how posts are sent.
//
// Defaults:
//   - hashtag: "NBA" (set to "" to disable)
//   - langs: ["en"]
//   - retry_max: 5, retry_base: "1s", retry_max_delay: "1m"
//   - min_interval: "0s" (no pacing)
//   - max_post_length: 300
type PublishConfig struct {
	Hashtag       *string  `json:"hashtag,omitempty"`
	Langs         []string `json:"langs,omitempty"`
	RetryMax      int      `json:"retry_max,omitempty"`
	RetryBase     string   `json:"retry_base,omitempty"`
	RetryMaxDelay string   `json:"retry_max_delay,omitempty"`
	MinInterval   string   `json:"min_interval,omitempty"`
	// Continuation is prepended to every reply in a thread.
	Continuation  string `json:"continuation,omitempty"`
	MaxPostLength int    `json:"max_post_length,omitempty"`
}

type ContentConfig struct {
	// Dir holds last_games_score.json, standing.json and future_games.json.
	Dir string `json:"dir,omitempty"`
}

type GuardConfig struct {
	Cooldown string `json:"cooldown,omitempty"`
}

type SchedulerConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type JobsConfig struct {
	LastGames    JobConfig `json:"last_games"`
	Standings    JobConfig `json:"standings"`
	PlannedGames JobConfig `json:"planned_games"`
}

// JobConfig schedules one publishing job. Schedule accepts a cron spec
// (5 or 6 fields, or a descriptor like "@daily"), an "every:<duration>"
// interval or a daily "HH:MM".
type JobConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Schedule string `json:"schedule,omitempty"`
}

type RefreshConfig struct {
	Enabled  *bool    `json:"enabled,omitempty"`
	Schedule string   `json:"schedule,omitempty"`
	Command  string   `json:"command,omitempty"`
	Args     []string `json:"args,omitempty"`
	Dir      string   `json:"dir,omitempty"`
	Timeout  string   `json:"timeout,omitempty"`
}

// StorageConfig enables the post audit log. Nil means disabled.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console *bool          `json:"console,omitempty"`
	File    LoggingFileCfg `json:"file"`
}

type LoggingFileCfg struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Default schedules.
const (
	DefaultLastGamesSchedule    = "0 7 * * *"
	DefaultStandingsSchedule    = "0 8 * * 1"
	DefaultPlannedGamesSchedule = "0 18 * * *"
	DefaultRefreshSchedule      = "10 */4 * * *"
)

// Enabled reports b, or def when b was omitted.
func Enabled(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// HashtagSuffix renders the text appended to every post.
func (p PublishConfig) HashtagSuffix() string {
	tag := "NBA"
	if p.Hashtag != nil {
		tag = *p.Hashtag
	}
	if tag == "" {
		return ""
	}
	if tag[0] != '#' {
		tag = "#" + tag
	}
	return "\n" + tag
}

// ScheduleOr returns the configured schedule or def.
func (j JobConfig) ScheduleOr(def string) string {
	if j.Schedule == "" {
		return def
	}
	return j.Schedule
}
