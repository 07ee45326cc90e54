package bsky

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

const (
	DefaultHost    = "https://bsky.social"
	postCollection = "app.bsky.feed.post"
	createdAtFmt   = "2006-01-02T15:04:05.000Z"
)

// XRPCService talks to a PDS over XRPC.
type XRPCService struct {
	mu sync.Mutex
	c  *xrpc.Client
}

// NewXRPCService builds a service for host (DefaultHost when empty).
func NewXRPCService(host string, timeout time.Duration) *XRPCService {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultHost
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &XRPCService{c: &xrpc.Client{
		Client: &http.Client{Timeout: timeout},
		Host:   host,
	}}
}

func (s *XRPCService) CreateSession(ctx context.Context, identifier, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.Auth = nil
	out, err := comatproto.ServerCreateSession(ctx, s.c, &comatproto.ServerCreateSession_Input{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		return mapError(err)
	}
	s.c.Auth = &xrpc.AuthInfo{
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
		Handle:     out.Handle,
		Did:        out.Did,
	}
	return nil
}

func (s *XRPCService) CreatePost(ctx context.Context, p Post) (PostRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.c.Auth == nil {
		return PostRef{}, ErrNotLoggedIn
	}
	out, err := comatproto.RepoCreateRecord(ctx, s.c, &comatproto.RepoCreateRecord_Input{
		Collection: postCollection,
		Repo:       s.c.Auth.Did,
		Record:     &lexutil.LexiconTypeDecoder{Val: feedPost(p)},
	})
	if err != nil {
		return PostRef{}, mapError(err)
	}
	return PostRef{URI: out.Uri, CID: out.Cid}, nil
}

func feedPost(p Post) *appbsky.FeedPost {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	fp := &appbsky.FeedPost{
		LexiconTypeID: postCollection,
		Text:          p.Text,
		CreatedAt:     created.UTC().Format(createdAtFmt),
		Langs:         p.Langs,
	}
	for _, t := range p.Tags {
		fp.Facets = append(fp.Facets, &appbsky.RichtextFacet{
			Index: &appbsky.RichtextFacet_ByteSlice{
				ByteStart: int64(t.ByteStart),
				ByteEnd:   int64(t.ByteEnd),
			},
			Features: []*appbsky.RichtextFacet_Features_Elem{{
				RichtextFacet_Tag: &appbsky.RichtextFacet_Tag{
					LexiconTypeID: "app.bsky.richtext.facet#tag",
					Tag:           t.Tag,
				},
			}},
		})
	}
	if p.Reply != nil {
		fp.Reply = &appbsky.FeedPost_ReplyRef{
			Root:   &comatproto.RepoStrongRef{Uri: p.Reply.Root.URI, Cid: p.Reply.Root.CID},
			Parent: &comatproto.RepoStrongRef{Uri: p.Reply.Parent.URI, Cid: p.Reply.Parent.CID},
		}
	}
	return fp
}

// mapError turns XRPC failures into the package's sentinel kinds.
func mapError(err error) error {
	var xe *xrpc.Error
	if !errors.As(err, &xe) {
		return err
	}
	if xe.StatusCode == http.StatusTooManyRequests {
		return classify(ErrRateLimited, err)
	}
	var body *xrpc.XRPCError
	if errors.As(xe.Wrapped, &body) && body.ErrStr == "ExpiredToken" {
		return classify(ErrSessionExpired, err)
	}
	return err
}
