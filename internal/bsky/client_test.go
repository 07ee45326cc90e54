package bsky

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	logx "courtbot/pkg/logx"
)

type fakeService struct {
	loginErrs []error
	postErrs  []error

	logins int
	posts  []Post
}

func (f *fakeService) CreateSession(_ context.Context, identifier, password string) error {
	f.logins++
	if len(f.loginErrs) > 0 {
		err := f.loginErrs[0]
		f.loginErrs = f.loginErrs[1:]
		return err
	}
	return nil
}

func (f *fakeService) CreatePost(_ context.Context, p Post) (PostRef, error) {
	f.posts = append(f.posts, p)
	if len(f.postErrs) > 0 {
		err := f.postErrs[0]
		f.postErrs = f.postErrs[1:]
		if err != nil {
			return PostRef{}, err
		}
	}
	n := len(f.posts)
	return PostRef{URI: fmt.Sprintf("at://did:plc:test/app.bsky.feed.post/%d", n), CID: fmt.Sprintf("cid%d", n)}, nil
}

func newTestClient(svc Service, cfg Config) (*Client, *[]time.Duration) {
	c := New(svc, cfg, logx.Nop())
	var delays []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return c, &delays
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Identifier = "courtbot.bsky.social"
	cfg.Password = "app-password"
	return cfg
}

func TestAppendTagOffsets(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		suffix string
	}{
		{"ascii", "Results of the night:\nA:1", "\n#NBA"},
		{"multibyte", "Résultats 🏀 ce soir", "\n#NBA"},
		{"trailing text", "Standings", " #NBA today"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, tag := AppendTag(tt.text, tt.suffix)
			require.NotNil(t, tag)
			require.Equal(t, tt.text+tt.suffix, out)
			require.Equal(t, "#NBA", out[tag.ByteStart:tag.ByteEnd])
			require.Equal(t, "NBA", tag.Tag)
		})
	}

	out, tag := AppendTag("plain", "")
	require.Equal(t, "plain", out)
	require.Nil(t, tag)
}

func TestPublishRetriesRateLimitWithDoublingDelay(t *testing.T) {
	svc := &fakeService{postErrs: []error{
		classify(ErrRateLimited, errors.New("XRPC ERROR 429")),
		errors.New("RateLimitExceeded: Rate Limit Exceeded"),
	}}
	cfg := testConfig()
	cfg.RetryBase = 1500 * time.Millisecond
	c, delays := newTestClient(svc, cfg)

	ref, err := c.Publish(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.Equal(t, "cid3", ref.CID)
	require.Len(t, svc.posts, 3)
	require.Equal(t, []time.Duration{1500 * time.Millisecond, 3 * time.Second}, *delays)
}

func TestPublishDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("InvalidRequest: record too long")
	svc := &fakeService{postErrs: []error{boom}}
	c, delays := newTestClient(svc, testConfig())

	_, err := c.Publish(context.Background(), "hello", nil)
	require.ErrorIs(t, err, boom)
	require.Len(t, svc.posts, 1)
	require.Empty(t, *delays)
}

func TestPublishGivesUpAfterRetryMax(t *testing.T) {
	limited := classify(ErrRateLimited, errors.New("429"))
	svc := &fakeService{postErrs: []error{limited, limited, limited, limited}}
	cfg := testConfig()
	cfg.RetryMax = 2
	cfg.RetryBase = time.Second
	cfg.RetryMaxDelay = 0
	c, delays := newTestClient(svc, cfg)

	_, err := c.Publish(context.Background(), "hello", nil)
	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.ErrorIs(t, err, ErrRateLimited)
	require.Len(t, svc.posts, 3)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestRetryDelayIsCapped(t *testing.T) {
	limited := classify(ErrRateLimited, errors.New("429"))
	svc := &fakeService{postErrs: []error{limited, limited, limited, limited}}
	cfg := testConfig()
	cfg.RetryBase = time.Second
	cfg.RetryMaxDelay = 3 * time.Second
	c, delays := newTestClient(svc, cfg)

	_, err := c.Publish(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, *delays)
}

func TestPublishComposesTagAndReply(t *testing.T) {
	svc := &fakeService{}
	c, _ := newTestClient(svc, testConfig())
	now := time.Date(2026, 10, 17, 7, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	link := &ReplyLink{
		Root:   PostRef{URI: "at://root", CID: "rootcid"},
		Parent: PostRef{URI: "at://parent", CID: "parentcid"},
	}
	_, err := c.Publish(context.Background(), "2. Boston Celtics", link)
	require.NoError(t, err)
	require.Len(t, svc.posts, 1)

	p := svc.posts[0]
	require.Equal(t, "2. Boston Celtics\n#NBA", p.Text)
	require.Len(t, p.Tags, 1)
	require.Equal(t, "#NBA", p.Text[p.Tags[0].ByteStart:p.Tags[0].ByteEnd])
	require.Equal(t, link, p.Reply)
	require.Equal(t, now, p.CreatedAt)
	require.Equal(t, []string{"en"}, p.Langs)
}

func TestPublishLogsInAgainOnExpiredSession(t *testing.T) {
	svc := &fakeService{postErrs: []error{classify(ErrSessionExpired, errors.New("ExpiredToken"))}}
	c, _ := newTestClient(svc, testConfig())

	ref, err := c.Publish(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.True(t, ref.Valid())
	require.Equal(t, 1, svc.logins)
	require.Len(t, svc.posts, 2)
}

func TestPublishRetriesRateLimitedRelogin(t *testing.T) {
	expired := classify(ErrSessionExpired, errors.New("ExpiredToken"))
	svc := &fakeService{
		postErrs:  []error{expired, expired},
		loginErrs: []error{classify(ErrRateLimited, errors.New("429"))},
	}
	c, delays := newTestClient(svc, testConfig())

	ref, err := c.Publish(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.True(t, ref.Valid())
	require.Equal(t, 2, svc.logins)
	require.Len(t, svc.posts, 3)
	require.Equal(t, []time.Duration{time.Second}, *delays)
}

func TestLoginRetriesAndValidates(t *testing.T) {
	svc := &fakeService{loginErrs: []error{classify(ErrRateLimited, errors.New("429"))}}
	c, delays := newTestClient(svc, testConfig())
	require.NoError(t, c.Login(context.Background()))
	require.Equal(t, 2, svc.logins)
	require.Equal(t, []time.Duration{time.Second}, *delays)

	c2, _ := newTestClient(&fakeService{}, DefaultConfig())
	require.Error(t, c2.Login(context.Background()))
}

func TestIsRateLimited(t *testing.T) {
	require.False(t, IsRateLimited(nil))
	require.False(t, IsRateLimited(errors.New("boom")))
	require.True(t, IsRateLimited(fmt.Errorf("wrap: %w", ErrRateLimited)))
	require.True(t, IsRateLimited(errors.New("Error: Rate Limit Exceeded")))
}

func TestSleepCtxHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
