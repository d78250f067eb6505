package chat

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item type tags, matching the renderer kinds of the replay feed.
const (
	TypeText         = "textMessage"
	TypeSuperChat    = "superChat"
	TypeSuperSticker = "superSticker"
	TypeNewSponsor   = "newSponsor"
)

// Author is the message author as exposed by the replay feed.
type Author struct {
	ChannelID string
	Name      string
}

// Item is one normalized chat item from a replay page. Monetary fields
// (Currency, Amount, BgColor) are only populated for paid item types.
// Timestamp is epoch milliseconds; BgColor is the packed ARGB value as sent
// by the feed.
type Item struct {
	Type      string
	Timestamp int64
	Currency  string
	Amount    decimal.Decimal
	BgColor   uint32
	Author    Author
}

// Source iterates a chat replay: IsAlive reports whether the feed may still
// yield pages, Next fetches the next page of items. Implementations are not
// safe for concurrent use.
type Source interface {
	IsAlive() bool
	Next(ctx context.Context) ([]Item, error)
}
