// Package bsky is the only component that talks to Bluesky.
//
// Client composes the hashtag annotation and applies the rate-limit retry
// policy; Service is the raw remote API (XRPCService in production, fakes
// in tests).
package bsky

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "courtbot/pkg/logx"
)

// Service is the remote API consumed by Client.
type Service interface {
	CreateSession(ctx context.Context, identifier, password string) error
	CreatePost(ctx context.Context, p Post) (PostRef, error)
}

// Config controls Client behavior.
//
// Retry policy: a rate-limited call is retried up to RetryMax times, waiting
// RetryBase before the first retry and doubling each time (capped at
// RetryMaxDelay when set). Other errors are never retried.
type Config struct {
	Identifier string
	Password   string

	// HashtagSuffix is appended to every post, e.g. "\n#NBA".
	HashtagSuffix string
	Langs         []string

	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration

	// MinInterval spaces consecutive CreatePost calls. 0 disables pacing.
	MinInterval time.Duration
}

// DefaultConfig mirrors the production posting policy.
func DefaultConfig() Config {
	return Config{
		HashtagSuffix: "\n#NBA",
		Langs:         []string{"en"},
		RetryMax:      5,
		RetryBase:     time.Second,
		RetryMaxDelay: time.Minute,
	}
}

// Client publishes posts through a Service with retry, pacing and the
// hashtag suffix applied.
type Client struct {
	svc Service
	log logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client for svc.
func New(svc Service, cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{
		svc:   svc,
		log:   log,
		now:   time.Now,
		sleep: sleepCtx,
	}
	c.Apply(cfg)
	return c
}

// Apply swaps the posting policy. Credentials changes take effect on the
// next login.
func (c *Client) Apply(cfg Config) {
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinInterval > 0 {
		lim = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	c.mu.Lock()
	c.cfg = cfg
	c.limiter = lim
	c.mu.Unlock()
}

func (c *Client) config() (Config, *rate.Limiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg, c.limiter
}

// Suffix returns the text appended to every post.
func (c *Client) Suffix() string {
	cfg, _ := c.config()
	return cfg.HashtagSuffix
}

// Login opens a session, retrying while rate limited.
func (c *Client) Login(ctx context.Context) error {
	cfg, _ := c.config()
	if strings.TrimSpace(cfg.Identifier) == "" || cfg.Password == "" {
		return errors.New("bsky: identifier and password are required")
	}
	err := c.retry(ctx, cfg, "login", func(ctx context.Context) error {
		return c.svc.CreateSession(ctx, cfg.Identifier, cfg.Password)
	})
	if err != nil {
		return fmt.Errorf("login %s: %w", cfg.Identifier, err)
	}
	c.log.Info("logged in", logx.String("identifier", cfg.Identifier))
	return nil
}

// Publish creates one post with the hashtag suffix, as a reply when reply is set.
func (c *Client) Publish(ctx context.Context, text string, reply *ReplyLink) (PostRef, error) {
	cfg, lim := c.config()

	full, tag := AppendTag(text, cfg.HashtagSuffix)
	p := Post{
		Text:      full,
		Reply:     reply,
		Langs:     cfg.Langs,
		CreatedAt: c.now(),
	}
	if tag != nil {
		p.Tags = []Tag{*tag}
	}

	var (
		ref      PostRef
		relogged bool
	)
	err := c.retry(ctx, cfg, "create_post", func(ctx context.Context) error {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		var err error
		ref, err = c.svc.CreatePost(ctx, p)
		if errors.Is(err, ErrSessionExpired) && !relogged {
			relogged = true
			c.log.Warn("session expired, logging in again")
			if lerr := c.svc.CreateSession(ctx, cfg.Identifier, cfg.Password); lerr != nil {
				// A rate-limited re-login is retried after the backoff.
				relogged = false
				return fmt.Errorf("re-login: %w", lerr)
			}
			ref, err = c.svc.CreatePost(ctx, p)
		}
		return err
	})
	if err != nil {
		return PostRef{}, err
	}
	return ref, nil
}

// retry runs fn, retrying rate-limited failures with exponential backoff.
func (c *Client) retry(ctx context.Context, cfg Config, op string, fn func(ctx context.Context) error) error {
	delay := cfg.RetryBase
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRateLimited(err) {
			return err
		}
		if attempt > cfg.RetryMax {
			return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrRetriesExhausted, attempt, err)
		}
		c.log.Warn("rate limited, backing off",
			logx.String("op", op),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		if cfg.RetryMaxDelay > 0 && delay > cfg.RetryMaxDelay {
			delay = cfg.RetryMaxDelay
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
