// Package jobs holds the three publishing entry points invoked by the
// scheduler or by hand: last night's results, standings and tonight's games.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"courtbot/internal/bsky"
	"courtbot/internal/chunker"
	"courtbot/internal/content"
	"courtbot/internal/eventbus"
	"courtbot/internal/guard"
	"courtbot/internal/thread"
	logx "courtbot/pkg/logx"
)

// Job names; also used as guard lease keys and schedule names.
const (
	LastGames    = "lastGames"
	Standings    = "standings"
	PlannedGames = "plannedGames"
)

// ResultBoundary opens and closes each record of the last-games feed
// ("--Away:98\nHome:102\n--"); long result threads are cut there.
const ResultBoundary = "\n--"

// Names lists every job in a stable order.
var Names = []string{LastGames, Standings, PlannedGames}

// Source provides the feeds; *content.Provider implements it.
type Source interface {
	LastGames() ([]string, error)
	Standings() (content.Standings, error)
	FutureGames() ([]string, error)
}

// Config holds the composition settings of the publishing jobs.
type Config struct {
	MaxPostLength int
	// Suffix is what the publish client appends to every post.
	Suffix string

	LastGamesPrefix    string
	PlannedGamesPrefix string
	EastName           string
	WestName           string
}

// DefaultConfig returns the stock prefixes and conference names.
func DefaultConfig() Config {
	return Config{
		MaxPostLength:      chunker.MaxPostLength,
		Suffix:             bsky.DefaultConfig().HashtagSuffix,
		LastGamesPrefix:    "Results of the night:\n",
		PlannedGamesPrefix: "Tonight's games:\n",
		EastName:           "Eastern Conference",
		WestName:           "Western Conference",
	}
}

// Thread is one reply chain to publish.
type Thread struct {
	Prefix string
	Chunks []string
}

// Service runs the publishing jobs against a feed source and a thread builder.
type Service struct {
	mu      sync.RWMutex
	cfg     Config
	src     Source
	builder *thread.Builder
	guard   *guard.Guard
	bus     eventbus.Bus
	log     logx.Logger

	now      func() time.Time
	newRunID func() string
}

// New creates a Service. A zero logger is replaced by logx.Nop and a nil bus
// by a private in-memory one.
func New(cfg Config, src Source, builder *thread.Builder, g *guard.Guard, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.New()
	}
	s := &Service{
		src:      src,
		builder:  builder,
		guard:    g,
		bus:      bus,
		log:      log,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	s.Apply(cfg)
	return s
}

// Apply swaps the composition settings; runs already planned keep theirs.
func (s *Service) Apply(cfg Config) {
	if cfg.MaxPostLength <= 0 {
		cfg.MaxPostLength = chunker.MaxPostLength
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Config returns the composition settings in effect.
func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// LastGames publishes last night's results.
func (s *Service) LastGames(ctx context.Context) (bool, error) { return s.Run(ctx, LastGames) }

// Standings publishes both conference rankings.
func (s *Service) Standings(ctx context.Context) (bool, error) { return s.Run(ctx, Standings) }

// PlannedGames publishes tonight's schedule.
func (s *Service) PlannedGames(ctx context.Context) (bool, error) { return s.Run(ctx, PlannedGames) }

// Run executes the named job under the posting guard.
//
// ran is false when the guard skipped the job; that is not an error.
func (s *Service) Run(ctx context.Context, name string) (ran bool, err error) {
	runID := s.newRunID()
	log := s.log.With(logx.String("job", name), logx.String("run_id", runID))
	start := s.now()

	posts := 0
	ran, err = s.guard.Do(name, func() error {
		threads, err := s.Plan(name)
		if err != nil {
			return err
		}
		if len(threads) == 0 {
			log.Info("nothing to publish")
			return nil
		}
		for _, th := range threads {
			n, err := s.publish(ctx, log, name, runID, th)
			posts += n
			if err != nil {
				return err
			}
		}
		return nil
	})

	ev := eventbus.JobEvent{Job: name, RunID: runID, Posts: posts, Took: s.now().Sub(start)}
	switch {
	case !ran:
		log.Info("job skipped: another job is running or this one ran recently")
		s.bus.Publish(eventbus.Event{Type: eventbus.JobSkipped, Data: ev})
	case err != nil:
		ev.Error = err.Error()
		log.Error("job failed", logx.Err(err), logx.Int("posts", posts))
		s.bus.Publish(eventbus.Event{Type: eventbus.JobFailed, Data: ev})
	default:
		log.Info("thread posted successfully",
			logx.Int("posts", posts),
			logx.Duration("took", ev.Took),
			logx.String("at", s.now().Format("2006-01-02 15:04:05")),
		)
		s.bus.Publish(eventbus.Event{Type: eventbus.JobDone, Data: ev})
	}
	return ran, err
}

func (s *Service) publish(ctx context.Context, log logx.Logger, name, runID string, th Thread) (int, error) {
	opt := s.options(th.Prefix)
	for _, i := range chunker.Oversized(th.Chunks, opt) {
		log.Warn("chunk exceeds post budget, publishing anyway",
			logx.Int("chunk", i+1),
			logx.Int("graphemes", chunker.Length(th.Chunks[i])),
			logx.Int("budget", opt.Budget()),
		)
	}

	refs, err := s.builder.Publish(ctx, th.Chunks, th.Prefix)
	for i, ref := range refs {
		text := th.Chunks[i]
		if i == 0 {
			text = th.Prefix + text
		}
		s.bus.Publish(eventbus.Event{Type: eventbus.PostPublished, Data: eventbus.PostEvent{
			Job: name, RunID: runID, Index: i, URI: ref.URI, CID: ref.CID, Text: text,
		}})
	}
	if err != nil {
		if len(refs) > 0 {
			log.Warn("thread left incomplete", logx.Int("published", len(refs)), logx.Int("chunks", len(th.Chunks)))
		}
		return len(refs), err
	}
	return len(refs), nil
}

// Plan builds the threads a job would publish, without publishing anything.
func (s *Service) Plan(name string) ([]Thread, error) {
	cfg := s.Config()
	switch name {
	case LastGames:
		games, err := s.src.LastGames()
		if err != nil {
			return nil, fmt.Errorf("load last games: %w", err)
		}
		return s.resultsThread(games, cfg.LastGamesPrefix), nil
	case PlannedGames:
		games, err := s.src.FutureGames()
		if err != nil {
			return nil, fmt.Errorf("load future games: %w", err)
		}
		return s.listThread(games, cfg.PlannedGamesPrefix), nil
	case Standings:
		st, err := s.src.Standings()
		if err != nil {
			return nil, fmt.Errorf("load standings: %w", err)
		}
		var out []Thread
		for _, conf := range []struct {
			name  string
			teams []string
		}{{cfg.EastName, st.East}, {cfg.WestName, st.West}} {
			if th, ok := s.standingsThread(conf.name, conf.teams); ok {
				out = append(out, th)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown job %q", name)
	}
}

func (s *Service) listThread(items []string, prefix string) []Thread {
	chunks := chunker.SplitItems(items, s.options(prefix))
	if len(chunks) == 0 {
		return nil
	}
	return []Thread{{Prefix: prefix, Chunks: chunks}}
}

// resultsThread chunks the joined result records line by line, preferring to
// cut between records so a score never spans two posts.
func (s *Service) resultsThread(records []string, prefix string) []Thread {
	opt := s.options(prefix)
	opt.Boundary = ResultBoundary
	chunks := chunker.Split(strings.Join(records, "\n"), opt)
	if len(chunks) == 0 {
		return nil
	}
	return []Thread{{Prefix: prefix, Chunks: chunks}}
}

// standingsThread renders a conference as two halves, each post carrying the
// conference heading, the second half replying to the first.
func (s *Service) standingsThread(conference string, teams []string) (Thread, bool) {
	if len(teams) == 0 {
		return Thread{}, false
	}
	heading := conference + " Standings:\n"
	opt := s.options("")
	opt.Reserved += chunker.Length(heading)

	first, second := chunker.Halves(chunker.Numbered(teams, 1))
	var chunks []string
	for _, half := range [][]string{first, second} {
		for _, c := range chunker.SplitItems(half, opt) {
			chunks = append(chunks, heading+c)
		}
	}
	return Thread{Chunks: chunks}, true
}

// options reserves room for the thread prefix (or continuation marker) and
// the trailing hashtag.
func (s *Service) options(prefix string) chunker.Options {
	lead := chunker.Length(prefix)
	if c := chunker.Length(s.builder.Continuation); c > lead {
		lead = c
	}
	cfg := s.Config()
	return chunker.Options{
		MaxLength: cfg.MaxPostLength,
		Reserved:  lead + chunker.Length(cfg.Suffix),
	}
}
