package app

import (
	"context"
	"time"

	"courtbot/internal/eventbus"
	"courtbot/internal/storage"
	logx "courtbot/pkg/logx"
)

// recordLoop persists published posts until ctx is done.
func (a *App) recordLoop(ctx context.Context, events <-chan eventbus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			a.record(ctx, e)
		}
	}
}

func (a *App) record(ctx context.Context, e eventbus.Event) {
	if a.store == nil || e.Type != eventbus.PostPublished {
		return
	}
	p, ok := e.Data.(eventbus.PostEvent)
	if !ok {
		return
	}
	at := e.Time
	if at.IsZero() {
		at = time.Now()
	}
	// A failed audit write must not fail the post that is already live.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := a.store.RecordPost(wctx, storage.PostRecord{
		At:    at,
		Job:   p.Job,
		RunID: p.RunID,
		Index: p.Index,
		URI:   p.URI,
		CID:   p.CID,
		Text:  p.Text,
	})
	if err != nil {
		a.log.Warn("post audit write failed", logx.String("uri", p.URI), logx.Err(err))
	}
}
