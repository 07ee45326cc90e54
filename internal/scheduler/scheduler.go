package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "courtbot/pkg/logx"
)

type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "America/New_York"; empty means Local
}

// Job is a scheduled callback. ctx is cancelled on Stop or when the
// schedule's timeout elapses.
type Job func(ctx context.Context) error

type entryDef struct {
	name    string
	spec    Spec
	timeout time.Duration
	job     Job
	entryID cron.EntryID
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
}

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger
	loc *time.Location

	parent context.Context // set by Start, cleared by Stop
	c      *cron.Cron
	runCtx context.Context // lives as long as c
	cancel context.CancelFunc
	defs   []*entryDef
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{cfg: cfg, log: log}
	s.loc = s.loadLocationLocked()
	return s
}

// Add registers job under name, replacing any schedule with the same name.
func (s *Service) Add(name, schedule string, timeout time.Duration, job Job) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if job == nil {
		return errors.New("job required")
	}
	spec, err := ParseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(name)
	d := &entryDef{name: name, spec: spec, timeout: timeout, job: job}
	s.defs = append(s.defs, d)
	if s.c == nil {
		return nil
	}
	if err := s.registerLocked(d); err != nil {
		return err
	}
	s.log.Debug("schedule registered",
		logx.String("name", name),
		logx.String("spec", spec.String()),
		logx.Time("next", s.c.Entry(d.entryID).Next),
	)
	return nil
}

// Remove drops the named schedule. It reports whether one existed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(name)
}

func (s *Service) removeLocked(name string) bool {
	for i, d := range s.defs {
		if d.name != name {
			continue
		}
		if s.c != nil && d.entryID != 0 {
			s.c.Remove(d.entryID)
		}
		s.defs = append(s.defs[:i], s.defs[i+1:]...)
		return true
	}
	return false
}

// Start begins triggering. Jobs derive their context from ctx. With the
// scheduler disabled, Start only remembers ctx so Apply can enable it later.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parent != nil {
		return
	}
	s.parent = ctx
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return
	}
	s.startLocked()
}

func (s *Service) startLocked() {
	s.loc = s.loadLocationLocked()
	s.runCtx, s.cancel = context.WithCancel(s.parent)
	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.c = c

	for _, d := range s.defs {
		d.entryID = 0
		if err := s.registerLocked(d); err != nil {
			s.log.Error("schedule register failed", logx.String("name", d.name), logx.Err(err))
		}
	}
	c.Start()
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

// stopLocked detaches the running cron. The caller waits on the returned
// context after releasing s.mu so in-flight jobs can finish.
func (s *Service) stopLocked() context.Context {
	c, cancel := s.c, s.cancel
	s.c, s.runCtx, s.cancel = nil, nil, nil
	if c == nil {
		return nil
	}
	done := c.Stop()
	cancel()
	return done
}

// Stop halts triggering, cancels running jobs and waits for them until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	s.parent = nil
	done := s.stopLocked()
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done.Done():
		case <-ctx.Done():
			s.log.Warn("scheduler stop timed out; jobs still running")
		}
	}
	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

// Apply updates the config. A timezone change re-registers every schedule;
// toggling Enabled starts or stops triggering.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	oldTZ := strings.TrimSpace(s.cfg.Timezone)
	s.cfg = cfg
	running := s.c != nil

	var done context.Context
	switch {
	case s.parent == nil:
		s.loc = s.loadLocationLocked()
	case !cfg.Enabled && running:
		done = s.stopLocked()
		s.log.Info("scheduler disabled")
	case cfg.Enabled && !running:
		s.startLocked()
	case running && oldTZ != strings.TrimSpace(cfg.Timezone):
		done = s.stopLocked()
		s.startLocked()
	}
	s.mu.Unlock()

	if done != nil {
		<-done.Done()
	}
}

func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

func (s *Service) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

// Entries lists schedules in registration order. Next and Prev are zero
// while the scheduler is not running.
func (s *Service) Entries() []ScheduleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduleInfo, 0, len(s.defs))
	for _, d := range s.defs {
		info := ScheduleInfo{Name: d.name, Spec: d.spec.String(), Timeout: d.timeout}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			info.Next, info.Prev = e.Next, e.Prev
		}
		out = append(out, info)
	}
	return out
}

// NextRuns previews the next n fire times of schedule in the current timezone.
func (s *Service) NextRuns(schedule string, from time.Time, n int) ([]time.Time, error) {
	spec, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}
	sched, err := spec.schedule()
	if err != nil {
		return nil, err
	}
	t := from.In(s.Location())
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) registerLocked(d *entryDef) error {
	sched, err := d.spec.schedule()
	if err != nil {
		return err
	}
	d.entryID = s.c.Schedule(sched, s.wrapLocked(d))
	return nil
}

// wrapLocked binds d to the context of the cron instance it is registered on.
func (s *Service) wrapLocked(d *entryDef) cron.Job {
	base := s.runCtx
	log := s.log.With(logx.String("schedule", d.name))
	return cron.FuncJob(func() {
		ctx := base
		var cancel context.CancelFunc = func() {}
		if d.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
		}
		defer cancel()
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		log.Debug("schedule fired")
		if err := d.job(ctx); err != nil {
			log.Error("scheduled job failed", logx.Err(err), logx.Duration("took", time.Since(start)))
			return
		}
		log.Debug("scheduled job finished", logx.Duration("took", time.Since(start)))
	})
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
