// Package collector implements the super chat collection pipeline: listing a
// creator's finished broadcasts, draining each undone video's chat replay,
// and committing the monetary events with resumable run checkpoints.
package collector

import (
	"context"
	"time"

	"github.com/sc-stats/backend/chat"
	"github.com/sc-stats/backend/db"
	"github.com/sc-stats/backend/holodex"
)

// Store is the persistence surface the collector needs. *db.Store satisfies
// it; tests substitute an in-memory fake.
type Store interface {
	ActiveStreamers(ctx context.Context) ([]db.Streamer, error)
	DoneVideoIDs(ctx context.Context) (map[string]struct{}, error)
	LastCollectionTime(ctx context.Context) (time.Time, error)
	CommitVideo(ctx context.Context, videoID string, streamerID int64, events []db.SuperChat) error
	RecordCollection(ctx context.Context, startedAt time.Time) error
	SetKV(ctx context.Context, key, value string) error
}

// VideoLister pages a channel's finished broadcasts newest-first.
// *holodex.Client satisfies it.
type VideoLister interface {
	ListVideos(ctx context.Context, channelID string, offset, limit int) ([]holodex.Video, error)
}

// OpenReplayFunc opens a chat replay session for a video.
type OpenReplayFunc func(ctx context.Context, videoID string) (chat.Source, error)

const defaultPageSize = 50

// DefaultSince is the cutoff used before any run checkpoint exists.
var DefaultSince = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Config tunes a Collector. Zero values fall back to defaults.
type Config struct {
	// Interval between scheduled runs. Default one hour.
	Interval time.Duration
	// Since is the cutoff when no checkpoint exists yet. Default DefaultSince.
	Since time.Time
	// PageSize for the metadata feed. Default 50.
	PageSize int
	// OpenReplay overrides how replay sessions are opened. Default uses the
	// public replay endpoint.
	OpenReplay OpenReplayFunc
}

// Collector coordinates collection runs. It is single-threaded: one creator,
// one video, one chat page at a time. Exactly one instance should run against
// a given database.
type Collector struct {
	store      Store
	videos     VideoLister
	openReplay OpenReplayFunc
	interval   time.Duration
	since      time.Time
	pageSize   int
	now        func() time.Time
}

// New builds a Collector over a persistence gateway and a video metadata
// client.
func New(store Store, videos VideoLister, cfg Config) *Collector {
	c := &Collector{
		store:      store,
		videos:     videos,
		openReplay: cfg.OpenReplay,
		interval:   cfg.Interval,
		since:      cfg.Since,
		pageSize:   cfg.PageSize,
		now:        time.Now,
	}
	if c.openReplay == nil {
		rc := &chat.ReplayClient{}
		c.openReplay = func(ctx context.Context, videoID string) (chat.Source, error) {
			return rc.Open(ctx, videoID)
		}
	}
	if c.interval <= 0 {
		c.interval = time.Hour
	}
	if c.since.IsZero() {
		c.since = DefaultSince
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	return c
}
