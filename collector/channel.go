package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sc-stats/backend/db"
	"github.com/sc-stats/backend/holodex"
	"github.com/sc-stats/backend/telemetry"
)

// collectChannel walks one creator's finished broadcasts newest-first and
// processes every video that is newer than the cutoff and not yet marked
// done. Per-video extraction failures are logged and skipped; metadata feed
// and commit failures propagate and abort the run.
func (c *Collector) collectChannel(ctx context.Context, st db.Streamer, cutoff time.Time, done map[string]struct{}) error {
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("streamer", st.EnglishName),
		slog.String("channel_id", st.ChannelID),
	)

	for offset := 0; ; offset += c.pageSize {
		page, err := c.videos.ListVideos(ctx, st.ChannelID, offset, c.pageSize)
		if err != nil {
			return fmt.Errorf("list videos for %s: %w", st.ChannelID, err)
		}

		for _, v := range page {
			if v.EndActual == nil {
				// Still live, upcoming, or not a broadcast.
				continue
			}
			if v.EndActual.Before(cutoff) {
				// Newest-first ordering: everything from here on is older
				// than the window too.
				log.Debug("reached cutoff", slog.String("video", v.ID), slog.Time("end", *v.EndActual))
				return nil
			}
			if _, ok := done[v.ID]; ok {
				continue
			}

			events, found, err := c.extractVideo(ctx, v, st.ID)
			if err != nil {
				log.Error("chat extraction failed", slog.String("video", v.ID), slog.Any("err", err))
				telemetry.Inc(telemetry.VideosFailed)
				continue
			}
			if !found {
				// Replay not available yet; leave unmarked so the next run
				// retries it.
				log.Warn("no chat replay yet", slog.String("video", v.ID))
				telemetry.Inc(telemetry.VideosSkipped)
				continue
			}

			if err := c.store.CommitVideo(ctx, v.ID, st.ID, events); err != nil {
				return fmt.Errorf("commit video %s: %w", v.ID, err)
			}
			telemetry.Inc(telemetry.VideosProcessed)
			telemetry.Add(telemetry.SuperChatsCollected, float64(len(events)))
			log.Info("video collected",
				slog.String("video", v.ID),
				slog.String("title", v.Title),
				slog.Int("super_chats", len(events)))
		}

		if len(page) < c.pageSize {
			return nil
		}
	}
}

// extractVideo opens the video's replay and drains it.
func (c *Collector) extractVideo(ctx context.Context, v holodex.Video, streamerID int64) ([]db.SuperChat, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "collector", "extract_video",
		attribute.String("video.id", v.ID))
	defer span.End()

	src, err := c.openReplay(ctx, v.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, false, fmt.Errorf("open replay: %w", err)
	}
	events, found, err := CollectSuperChats(ctx, src, streamerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, false, fmt.Errorf("drain replay: %w", err)
	}
	telemetry.SetSpanSuccess(span)
	return events, found, nil
}
