// Package app wires configuration, logging, the publishing pipeline and the
// scheduler into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"courtbot/internal/bsky"
	"courtbot/internal/config"
	"courtbot/internal/content"
	"courtbot/internal/eventbus"
	"courtbot/internal/guard"
	"courtbot/internal/jobs"
	"courtbot/internal/refresh"
	"courtbot/internal/scheduler"
	"courtbot/internal/storage"
	"courtbot/internal/supervisor"
	"courtbot/internal/thread"
	logx "courtbot/pkg/logx"
)

// refreshSchedule names the data refresh entry in the scheduler.
const refreshSchedule = "refresh"

type options struct {
	remote bsky.Service
}

type Option func(*options)

// WithRemote replaces the Bluesky XRPC service, e.g. with a fake in tests.
func WithRemote(svc bsky.Service) Option {
	return func(o *options) { o.remote = svc }
}

type App struct {
	cfgm *config.ConfigManager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store   storage.Store
	client  *bsky.Client
	guard   *guard.Guard
	builder *thread.Builder
	jobs    *jobs.Service
	sched   *scheduler.Service

	refreshMu sync.Mutex
	refresh   *refresh.Runner

	sup *supervisor.Supervisor
}

// New loads the config file at cfgPath and builds the app. Nothing runs
// until Start or Post is called.
func New(cfgPath string, opts ...Option) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return build(cfgm, cfg, opts...)
}

func build(cfgm *config.ConfigManager, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := validate(context.Background(), cfg); err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogging(cfg))
	a := &App{cfgm: cfgm, logs: logs, log: log.With(logx.String("comp", "app")), bus: eventbus.New()}

	remote := o.remote
	if remote == nil {
		rc, err := mapRemote(cfg)
		if err != nil {
			return nil, err
		}
		remote = bsky.NewXRPCService(rc.Host, rc.Timeout)
	}
	pubCfg, err := mapPublish(cfg)
	if err != nil {
		return nil, err
	}
	a.client = bsky.New(remote, pubCfg, log.With(logx.String("comp", "bsky")))

	cooldown, err := mapCooldown(cfg)
	if err != nil {
		return nil, err
	}
	a.guard = guard.New(cooldown, nil)

	a.builder = thread.New(a.client, log.With(logx.String("comp", "thread")))
	a.builder.Continuation = cfg.Publish.Continuation

	provider := content.New(orDefault(cfg.Content.Dir, "."))
	a.jobs = jobs.New(mapJobs(cfg), provider, a.builder, a.guard, a.bus, log.With(logx.String("comp", "jobs")))

	rcfg, err := mapRefresh(cfg)
	if err != nil {
		return nil, err
	}
	a.refresh = refresh.New(rcfg, log.With(logx.String("comp", "refresh")))

	a.sched = scheduler.New(mapScheduler(cfg), log.With(logx.String("comp", "scheduler")))
	if err := a.registerSchedules(cfg); err != nil {
		return nil, err
	}

	if sc, enabled, err := mapStorage(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.store = st
		a.log.Info("post audit enabled", logx.String("driver", sc.Driver))
	}
	return a, nil
}

// validate rejects configs that would fail at wiring time. It also guards
// hot reloads.
func validate(_ context.Context, cfg *config.Config) error {
	for _, s := range mapSchedules(cfg) {
		if !s.enabled {
			continue
		}
		if _, err := scheduler.ParseSchedule(s.spec); err != nil {
			return fmt.Errorf("schedule %s: %w", s.name, err)
		}
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if _, err := mapRemote(cfg); err != nil {
		return err
	}
	if _, err := mapPublish(cfg); err != nil {
		return err
	}
	if _, err := mapRefresh(cfg); err != nil {
		return err
	}
	_, _, err := mapStorage(cfg)
	return err
}

func (a *App) registerSchedules(cfg *config.Config) error {
	var errs []error
	for _, s := range mapSchedules(cfg) {
		if !s.enabled {
			a.sched.Remove(s.name)
			continue
		}
		if err := a.sched.Add(s.name, s.spec, 0, a.jobFunc(s.name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) jobFunc(name string) scheduler.Job {
	if name == refreshSchedule {
		return a.runRefresh
	}
	return func(ctx context.Context) error {
		_, err := a.jobs.Run(ctx, name)
		return err
	}
}

func (a *App) runRefresh(ctx context.Context) error {
	a.refreshMu.Lock()
	r := a.refresh
	a.refreshMu.Unlock()
	return r.Run(ctx)
}

func (a *App) Logger() logx.Logger { return a.log }

// Login opens the Bluesky session.
func (a *App) Login(ctx context.Context) error { return a.client.Login(ctx) }

// Start logs in, then runs the scheduler, the audit recorder and the config
// watcher until ctx is done or Stop is called.
func (a *App) Start(ctx context.Context) error {
	if err := a.Login(ctx); err != nil {
		return err
	}
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	if a.store != nil {
		events, unsub := a.bus.Subscribe(128)
		a.sup.Go("audit", func(c context.Context) error {
			defer unsub()
			return a.recordLoop(c, events)
		})
	}

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(validate)
	updates := a.cfgm.Subscribe(8)
	a.sup.Go("config.apply", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(updates)
		a.applyLoop(c, updates)
		return nil
	})
	a.sup.GoRestart("config.watch", 250*time.Millisecond, 30*time.Second, a.cfgm.Watch)

	a.sched.Start(a.sup.Context())
	for _, e := range a.sched.Entries() {
		a.log.Info("schedule registered", logx.String("name", e.Name), logx.String("spec", e.Spec), logx.Time("next", e.Next))
	}
	a.log.Info("bot started")
	return nil
}

// Done is closed once the app context is cancelled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Stop halts scheduling, waits for in-flight work until ctx is done and
// releases resources.
func (a *App) Stop(ctx context.Context) error {
	start := time.Now()
	a.sched.Stop(ctx)
	var errs []error
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	a.log.Info("bot stopped", logx.Duration("took", time.Since(start)))
	return errors.Join(errs...)
}

// Close releases the audit store and log file.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
	}
	return errors.Join(errs...)
}

// Post runs one job immediately, under the same guard as scheduled runs,
// and records the published posts.
func (a *App) Post(ctx context.Context, job string) (bool, error) {
	if !isJob(job) {
		return false, fmt.Errorf("unknown job %q", job)
	}
	events, unsub := a.bus.Subscribe(256)
	defer unsub()

	ran, err := a.jobs.Run(ctx, job)
drain:
	for {
		select {
		case e := <-events:
			a.record(ctx, e)
		default:
			break drain
		}
	}
	return ran, err
}

// Draft is a dry run of one job: the planned threads plus the text the
// publish path adds around each chunk.
type Draft struct {
	Threads       []jobs.Thread
	Suffix        string
	Continuation  string
	MaxPostLength int
}

// Post renders chunk i of th exactly as it would be published.
func (d Draft) Post(th jobs.Thread, i int) string {
	text := th.Chunks[i]
	if i == 0 {
		text = th.Prefix + text
	} else {
		text = d.Continuation + text
	}
	return text + d.Suffix
}

// Preview composes a job's threads without publishing.
func (a *App) Preview(job string) (Draft, error) {
	threads, err := a.jobs.Plan(job)
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		Threads:       threads,
		Suffix:        a.client.Suffix(),
		Continuation:  a.builder.Continuation,
		MaxPostLength: a.jobs.Config().MaxPostLength,
	}, nil
}

// History returns the most recent audited posts, newest first.
func (a *App) History(ctx context.Context, limit int) ([]storage.PostRecord, error) {
	if a.store == nil {
		return nil, storage.ErrDisabled
	}
	return a.store.RecentPosts(ctx, limit)
}

func isJob(name string) bool {
	for _, n := range jobs.Names {
		if n == name {
			return true
		}
	}
	return false
}
