package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sc-stats/backend/telemetry"
)

// kv key updated after every scheduled run attempt.
const heartbeatKey = "job_collect_last"

// RunOnce executes one full collection run: load the resume cutoff and the
// done-video set, walk every active streamer, then append a checkpoint
// carrying the run's start instant. A streamer's metadata or commit failure
// aborts the remainder of the run; the checkpoint is only written after all
// streamers completed.
func (c *Collector) RunOnce(ctx context.Context) error {
	startedAt := c.now().UTC()
	ctx, span := telemetry.StartSpan(ctx, "collector", "collection_run")
	defer span.End()

	telemetry.Inc(telemetry.RunsStarted)
	telemetry.SetLastRunStart(startedAt)
	log := telemetry.LoggerWithCorr(ctx)

	err := c.runOnce(ctx, startedAt, log)
	if err != nil {
		telemetry.Inc(telemetry.RunsFailed)
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.Inc(telemetry.RunsCompleted)
	telemetry.SetSpanSuccess(span)
	return nil
}

func (c *Collector) runOnce(ctx context.Context, startedAt time.Time, log *slog.Logger) error {
	cutoff, err := c.store.LastCollectionTime(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if cutoff.IsZero() {
		cutoff = c.since
	}

	done, err := c.store.DoneVideoIDs(ctx)
	if err != nil {
		return fmt.Errorf("load done videos: %w", err)
	}
	telemetry.SetDoneVideos(len(done))

	streamers, err := c.store.ActiveStreamers(ctx)
	if err != nil {
		return fmt.Errorf("load streamers: %w", err)
	}
	log.Info("collection run starting",
		slog.Time("cutoff", cutoff),
		slog.Int("streamers", len(streamers)),
		slog.Int("done_videos", len(done)))

	runStart := time.Now()
	for _, st := range streamers {
		chCtx, chSpan := telemetry.StartSpan(ctx, "collector", "collect_channel",
			attribute.String("channel.id", st.ChannelID))
		var cerr error
		telemetry.TimeFunc(telemetry.ChannelDuration, func() {
			cerr = c.collectChannel(chCtx, st, cutoff, done)
		})
		if cerr != nil {
			telemetry.RecordError(chSpan, cerr)
			chSpan.End()
			return fmt.Errorf("streamer %s: %w", st.EnglishName, cerr)
		}
		chSpan.End()
	}

	// The checkpoint is the run START time so a broadcast ending while this
	// run was in flight still falls inside the next run's window.
	if err := c.store.RecordCollection(ctx, startedAt); err != nil {
		return fmt.Errorf("record checkpoint: %w", err)
	}
	if telemetry.RunDuration != nil {
		telemetry.RunDuration.Observe(time.Since(runStart).Seconds())
	}
	log.Info("collection run complete", slog.Duration("took", time.Since(runStart)))
	return nil
}

// Run executes RunOnce immediately and then on every tick of the configured
// interval, until the context is cancelled. Run failures are logged; the loop
// keeps going so a transient feed outage only costs one cycle.
func (c *Collector) Run(ctx context.Context) {
	run := func() {
		if err := c.RunOnce(ctx); err != nil {
			slog.Error("collection run failed", slog.Any("err", err))
		}
		if err := c.store.SetKV(ctx, heartbeatKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Warn("failed to record collect heartbeat", slog.Any("err", err))
		}
	}

	run()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
