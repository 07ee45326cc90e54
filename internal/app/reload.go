package app

import (
	"context"
	"strings"

	"courtbot/internal/config"
	"courtbot/internal/refresh"
	logx "courtbot/pkg/logx"
)

// applyLoop applies committed config reloads until ctx is done.
func (a *App) applyLoop(ctx context.Context, updates <-chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-updates:
			if !ok {
				return
			}
			// Coalesce bursts; only the newest config matters.
			for more := true; more; {
				select {
				case newer := <-updates:
					if newer != nil {
						next = newer
					}
				default:
					more = false
				}
			}
			if next == nil {
				continue
			}
			a.apply(last, next)
			last = next
		}
	}
}

// apply pushes a new config into the running components. Sections that are
// wired once at startup only produce a warning.
func (a *App) apply(prev, next *config.Config) {
	if prev == nil {
		prev = &config.Config{}
	}
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	a.log.Info("config reloaded", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)...)

	a.logs.Apply(mapLogging(next))

	if pub, err := mapPublish(next); err != nil {
		a.log.Warn("invalid publish config; keeping previous", logx.Err(err))
	} else {
		a.client.Apply(pub)
	}
	a.jobs.Apply(mapJobs(next))

	if cd, err := mapCooldown(next); err != nil {
		a.log.Warn("invalid guard config; keeping previous", logx.Err(err))
	} else {
		a.guard.SetCooldown(cd)
	}

	if rc, err := mapRefresh(next); err != nil {
		a.log.Warn("invalid refresh config; keeping previous", logx.Err(err))
	} else {
		a.refreshMu.Lock()
		a.refresh = refresh.New(rc, a.log.With(logx.String("comp", "refresh")))
		a.refreshMu.Unlock()
	}

	a.sched.Apply(mapScheduler(next))
	if err := a.registerSchedules(next); err != nil {
		a.log.Warn("schedule update failed", logx.Err(err))
	}

	for _, s := range restartRequired(prev, next, sections) {
		a.log.Warn("config change needs a restart to take effect", logx.String("setting", s))
	}
}

func restartRequired(prev, next *config.Config, sections []string) []string {
	var out []string
	for _, s := range sections {
		switch s {
		case "storage", "content":
			out = append(out, s)
		}
	}
	if strings.TrimSpace(prev.Bluesky.Host) != strings.TrimSpace(next.Bluesky.Host) {
		out = append(out, "bluesky.host")
	}
	if prev.Bluesky.Timeout != next.Bluesky.Timeout {
		out = append(out, "bluesky.timeout")
	}
	if prev.Publish.Continuation != next.Publish.Continuation {
		out = append(out, "publish.continuation")
	}
	return out
}
