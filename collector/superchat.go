package collector

import (
	"context"
	"strings"
	"time"

	"github.com/sc-stats/backend/chat"
	"github.com/sc-stats/backend/db"
)

// CollectSuperChats drains a chat replay to completion and returns the super
// chat events it yielded, plus whether the replay contained any chat items at
// all. A replay with zero items usually means the archive is not ready yet;
// the caller must not mark the video done in that case.
//
// Any fetch or parse error discards events extracted so far and propagates,
// so a partially drained video is never committed.
func CollectSuperChats(ctx context.Context, src chat.Source, streamerID int64) ([]db.SuperChat, bool, error) {
	var events []db.SuperChat
	found := false
	for src.IsAlive() {
		items, err := src.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if len(items) == 0 {
			// An empty page with the session nominally alive means the
			// feed ended without signalling; stop rather than spin.
			break
		}
		for _, it := range items {
			found = true
			if it.Type != chat.TypeSuperChat {
				continue
			}
			events = append(events, db.SuperChat{
				Timestamp:  time.UnixMilli(it.Timestamp).UTC(),
				Currency:   strings.TrimSpace(it.Currency),
				Amount:     it.Amount,
				BgColor:    int64(ARGBToRGB(it.BgColor)),
				ChannelID:  it.Author.ChannelID,
				StreamerID: streamerID,
			})
		}
	}
	return events, found, nil
}
