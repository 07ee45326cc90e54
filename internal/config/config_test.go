package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logx "courtbot/pkg/logx"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func noEnv(string) (string, bool) { return "", false }

func TestParseYAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", `
bluesky:
  identifier: bot.example.com
  password: secret
publish:
  hashtag: "Basketball"
  retry_max: 3
  retry_base: 2s
jobs:
  standings:
    schedule: "0 9 * * 1"
storage:
  driver: sqlite
  path: ./data/posts.db
logging:
  level: debug
`)
	m := NewConfigManager(p)
	m.lookupEnv = noEnv
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bluesky.Identifier != "bot.example.com" || cfg.Bluesky.Password != "secret" {
		t.Fatalf("bluesky not decoded: %+v", cfg.Bluesky)
	}
	if got := cfg.Publish.HashtagSuffix(); got != "\n#Basketball" {
		t.Fatalf("suffix = %q", got)
	}
	if cfg.Publish.RetryMax != 3 {
		t.Fatalf("retry_max = %d", cfg.Publish.RetryMax)
	}
	if got := cfg.Jobs.Standings.ScheduleOr(DefaultStandingsSchedule); got != "0 9 * * 1" {
		t.Fatalf("standings schedule = %q", got)
	}
	if got := cfg.Jobs.LastGames.ScheduleOr(DefaultLastGamesSchedule); got != DefaultLastGamesSchedule {
		t.Fatalf("last games schedule = %q", got)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage not decoded: %+v", cfg.Storage)
	}
	if m.Get() != cfg {
		t.Fatalf("Load did not commit")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", "bluesky:\n  handle: nope\n")
	m := NewConfigManager(p)
	m.lookupEnv = noEnv
	if _, err := m.Parse(); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.json", `{"guard":{"cooldown":"1m"}} {}`)
	m := NewConfigManager(p)
	m.lookupEnv = noEnv
	if _, err := m.Parse(); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestEmptyYAMLUsesDefaults(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yml", "")
	m := NewConfigManager(p)
	m.lookupEnv = noEnv
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.Publish.HashtagSuffix(); got != "\n#NBA" {
		t.Fatalf("default suffix = %q", got)
	}
	if !Enabled(cfg.Scheduler.Enabled, true) {
		t.Fatalf("scheduler should default to enabled")
	}
}

func TestEnvOverridesCredentials(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", "bluesky:\n  identifier: file\n  password: file\n")
	m := NewConfigManager(p)
	m.lookupEnv = func(k string) (string, bool) {
		switch k {
		case EnvIdentifier:
			return " env.bsky.social ", true
		case EnvPassword:
			return "env-pass", true
		}
		return "", false
	}
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Bluesky.Identifier != "env.bsky.social" || cfg.Bluesky.Password != "env-pass" {
		t.Fatalf("env not applied: %+v", cfg.Bluesky)
	}
}

func TestValidate(t *testing.T) {
	empty := ""
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "zero", cfg: Config{}},
		{name: "bad duration", cfg: Config{Guard: GuardConfig{Cooldown: "soon"}}, wantErr: "guard.cooldown"},
		{name: "negative duration", cfg: Config{Publish: PublishConfig{RetryBase: "-1s"}}, wantErr: "publish.retry_base"},
		{name: "negative retries", cfg: Config{Publish: PublishConfig{RetryMax: -1}}, wantErr: "retry_max"},
		{name: "unknown driver", cfg: Config{Storage: &StorageConfig{Driver: "redis"}}, wantErr: "storage.driver"},
		{name: "missing path", cfg: Config{Storage: &StorageConfig{Driver: "file"}}, wantErr: "storage.path"},
		{name: "bad level", cfg: Config{Logging: LoggingConfig{Level: "loud"}}, wantErr: "logging.level"},
		{name: "hashtag disabled", cfg: Config{Publish: PublishConfig{Hashtag: &empty}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestHashtagSuffix(t *testing.T) {
	tag := func(s string) *string { return &s }
	cases := map[string]struct {
		in   *string
		want string
	}{
		"default":  {nil, "\n#NBA"},
		"plain":    {tag("Lakers"), "\n#Lakers"},
		"hashed":   {tag("#Celtics"), "\n#Celtics"},
		"disabled": {tag(""), ""},
	}
	for name, tc := range cases {
		if got := (PublishConfig{Hashtag: tc.in}).HashtagSuffix(); got != tc.want {
			t.Fatalf("%s: got %q want %q", name, got, tc.want)
		}
	}
}

func TestReloadPublishesOnlyOnChange(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "guard:\n  cooldown: 1m\n")
	m := NewConfigManager(p)
	m.lookupEnv = noEnv
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	published, err := m.Reload(context.Background())
	if err != nil || published {
		t.Fatalf("unchanged reload: published=%v err=%v", published, err)
	}

	writeFile(t, dir, "config.yaml", "guard:\n  cooldown: 2m\n")
	published, err = m.Reload(context.Background())
	if err != nil || !published {
		t.Fatalf("changed reload: published=%v err=%v", published, err)
	}
	select {
	case cfg := <-ch:
		if cfg.Guard.Cooldown != "2m" {
			t.Fatalf("cooldown = %q", cfg.Guard.Cooldown)
		}
	case <-time.After(time.Second):
		t.Fatalf("no config delivered")
	}
}

func TestReloadRejectedByValidator(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "guard:\n  cooldown: 1m\n")
	m := NewConfigManager(p)
	m.lookupEnv = noEnv
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.SetValidator(func(context.Context, *Config) error { return os.ErrInvalid })

	writeFile(t, dir, "config.yaml", "guard:\n  cooldown: 3m\n")
	if _, err := m.Reload(context.Background()); err == nil {
		t.Fatalf("expected rejection")
	}
	if got := m.Get().Guard.Cooldown; got != "1m" {
		t.Fatalf("rejected config was committed: %q", got)
	}
}

func TestSummarizeConfigChangeHidesSecrets(t *testing.T) {
	oldCfg := &Config{Bluesky: BlueskyConfig{Password: "old-secret"}}
	newCfg := &Config{Bluesky: BlueskyConfig{Password: "new-secret"}, Guard: GuardConfig{Cooldown: "1m"}}

	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "bluesky,guard" {
		t.Fatalf("changed = %v", changed)
	}
	var buf bytes.Buffer
	logx.NewWriter(&buf, "debug").Info("config reloaded", attrs...)
	if strings.Contains(buf.String(), "secret") {
		t.Fatalf("secret leaked into log: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"bluesky.password_changed":true`) {
		t.Fatalf("missing password_changed attr: %s", buf.String())
	}
}
