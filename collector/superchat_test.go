package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sc-stats/backend/chat"
)

// fakeSource replays a fixed sequence of pages. A non-nil err is returned on
// the fetch after the last page.
type fakeSource struct {
	pages [][]chat.Item
	err   error
	i     int
}

func (s *fakeSource) IsAlive() bool {
	return s.i < len(s.pages) || (s.err != nil && s.i == len(s.pages))
}

func (s *fakeSource) Next(ctx context.Context) ([]chat.Item, error) {
	if s.i >= len(s.pages) {
		s.i++
		return nil, s.err
	}
	page := s.pages[s.i]
	s.i++
	return page, nil
}

func superChatItem(ts int64, currency, amount, author string, color uint32) chat.Item {
	return chat.Item{
		Type:      chat.TypeSuperChat,
		Timestamp: ts,
		Currency:  currency,
		Amount:    decimal.RequireFromString(amount),
		BgColor:   color,
		Author:    chat.Author{ChannelID: author},
	}
}

func textItem(ts int64) chat.Item {
	return chat.Item{Type: chat.TypeText, Timestamp: ts, Author: chat.Author{ChannelID: "UCtext"}}
}

func TestCollectSuperChatsNormalizesEvents(t *testing.T) {
	src := &fakeSource{pages: [][]chat.Item{
		{textItem(1714561000000), superChatItem(1714561830123, "NT$ ", "75", "UCfan", 0xFFAABBCC)},
		{superChatItem(1714562000000, "$", "5.00", "UCother", 0x001E88E5)},
	}}

	events, found, err := CollectSuperChats(context.Background(), src, 42)
	if err != nil {
		t.Fatalf("CollectSuperChats: %v", err)
	}
	if !found {
		t.Error("found = false with chat activity present")
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	first := events[0]
	if first.Currency != "NT$" {
		t.Errorf("currency = %q, want trimmed NT$", first.Currency)
	}
	if !first.Amount.Equal(decimal.RequireFromString("75")) {
		t.Errorf("amount = %s, want 75", first.Amount)
	}
	if first.BgColor != 0x00AABBCC {
		t.Errorf("bg color = %#08x, want 0x00AABBCC", first.BgColor)
	}
	if got := first.Timestamp.UnixMilli(); got != 1714561830123 {
		t.Errorf("timestamp ms = %d, want 1714561830123", got)
	}
	if first.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp not UTC: %v", first.Timestamp)
	}
	if first.ChannelID != "UCfan" || first.StreamerID != 42 {
		t.Errorf("attribution wrong: %+v", first)
	}
}

func TestCollectSuperChatsZeroActivity(t *testing.T) {
	src := &fakeSource{}
	events, found, err := CollectSuperChats(context.Background(), src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("found = true for replay with no items")
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestCollectSuperChatsTextOnlySetsFound(t *testing.T) {
	src := &fakeSource{pages: [][]chat.Item{{textItem(1), textItem(2)}}}
	events, found, err := CollectSuperChats(context.Background(), src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("found = false despite text messages")
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestCollectSuperChatsEmptyPageTerminates(t *testing.T) {
	// An empty page while still nominally alive must stop the drain instead
	// of looping forever.
	src := &fakeSource{pages: [][]chat.Item{
		{superChatItem(1, "$", "1.00", "UCa", 0)},
		{},
		{superChatItem(2, "$", "2.00", "UCb", 0)},
	}}
	events, found, err := CollectSuperChats(context.Background(), src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("found = false")
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want 1 (drain must stop at the empty page)", len(events))
	}
}

func TestCollectSuperChatsErrorDiscardsPartial(t *testing.T) {
	src := &fakeSource{
		pages: [][]chat.Item{{superChatItem(1, "$", "9.99", "UCa", 0)}},
		err:   errors.New("connection reset"),
	}
	events, found, err := CollectSuperChats(context.Background(), src, 1)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if events != nil || found {
		t.Errorf("partial results leaked: events=%v found=%v", events, found)
	}
}
