// Package thread publishes an ordered list of chunks as one reply chain.
package thread

import (
	"context"
	"errors"
	"fmt"

	"courtbot/internal/bsky"
	logx "courtbot/pkg/logx"
)

// ErrContinuity is returned when a reply cannot be linked to the chain.
var ErrContinuity = errors.New("thread continuity lost")

// ContinuityError reports the chunk that could not be threaded.
type ContinuityError struct {
	Index int
}

func (e *ContinuityError) Error() string {
	return fmt.Sprintf("%v: no root/parent reference for chunk %d", ErrContinuity, e.Index)
}

func (e *ContinuityError) Unwrap() error { return ErrContinuity }

// Publisher creates a single post; *bsky.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, text string, reply *bsky.ReplyLink) (bsky.PostRef, error)
}

// Builder chains chunks into a thread through a Publisher.
type Builder struct {
	pub Publisher
	log logx.Logger

	// Continuation is prepended to every post after the first one.
	Continuation string
}

// New creates a Builder with no continuation marker.
func New(pub Publisher, log logx.Logger) *Builder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Builder{pub: pub, log: log}
}

// Publish posts chunks in order. prefix goes in front of the first chunk only.
//
// Each reply carries the first post as root and the previous post as parent.
// On error the refs of the posts already published are returned with it;
// those posts stay online.
func (b *Builder) Publish(ctx context.Context, chunks []string, prefix string) ([]bsky.PostRef, error) {
	refs := make([]bsky.PostRef, 0, len(chunks))
	var root, parent bsky.PostRef

	for i, chunk := range chunks {
		if i == 0 {
			ref, err := b.pub.Publish(ctx, prefix+chunk, nil)
			if err != nil {
				return refs, fmt.Errorf("publish chunk %d/%d: %w", i+1, len(chunks), err)
			}
			refs = append(refs, ref)
			root, parent = ref, ref
			b.log.Debug("thread root published", logx.String("uri", ref.URI), logx.String("cid", ref.CID))
			continue
		}

		if !root.Valid() || !parent.Valid() {
			b.log.Error("no parent post reference, cannot continue thread",
				logx.Int("chunk", i+1),
				logx.Int("chunks", len(chunks)),
			)
			return refs, &ContinuityError{Index: i}
		}
		ref, err := b.pub.Publish(ctx, b.Continuation+chunk, &bsky.ReplyLink{Root: root, Parent: parent})
		if err != nil {
			return refs, fmt.Errorf("publish chunk %d/%d: %w", i+1, len(chunks), err)
		}
		refs = append(refs, ref)
		parent = ref
		b.log.Debug("thread reply published", logx.Int("chunk", i+1), logx.String("uri", ref.URI))
	}
	return refs, nil
}
