package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// PostRecord is one published post.
type PostRecord struct {
	At    time.Time `json:"at"`
	Job   string    `json:"job"`
	RunID string    `json:"run_id"`
	Index int       `json:"index"`
	URI   string    `json:"uri"`
	CID   string    `json:"cid"`
	Text  string    `json:"text,omitempty"`
}

// Store is the persistence API used by the app.
type Store interface {
	RecordPost(ctx context.Context, r PostRecord) error
	// RecentPosts returns up to limit records, newest first.
	RecentPosts(ctx context.Context, limit int) ([]PostRecord, error)
	Close() error
}
