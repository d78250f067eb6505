package chat

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// renderer keys the replay feed uses for the item kinds we understand.
var rendererTypes = map[string]string{
	"liveChatTextMessageRenderer":     TypeText,
	"liveChatPaidMessageRenderer":     TypeSuperChat,
	"liveChatPaidStickerRenderer":     TypeSuperSticker,
	"liveChatMembershipItemRenderer":  TypeNewSponsor,
	"liveChatSponsorshipsGiftPurchaseAnnouncementRenderer": TypeNewSponsor,
}

// itemsFromPage extracts normalized chat items from one replay page. Replay
// pages wrap every action in a replayChatItemAction carrying the actions that
// originally happened at that playback offset.
func itemsFromPage(page map[string]any) []Item {
	var items []Item
	lc := digMap(page, "continuationContents", "liveChatContinuation")
	if lc == nil {
		return nil
	}
	actions, _ := lc["actions"].([]any)
	for _, a := range actions {
		action, ok := a.(map[string]any)
		if !ok {
			continue
		}
		inner := []any{any(action)}
		if replay := digMap(action, "replayChatItemAction"); replay != nil {
			if wrapped, ok := replay["actions"].([]any); ok {
				inner = wrapped
			}
		}
		for _, w := range inner {
			m, ok := w.(map[string]any)
			if !ok {
				continue
			}
			node := digMap(m, "addChatItemAction", "item")
			if node == nil {
				continue
			}
			if item, ok := itemFromNode(node); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

// itemFromNode builds an Item from an addChatItemAction item node by matching
// the renderer key against the kinds we understand. Unknown renderers (view
// counts, placeholders, mode changes) are dropped.
func itemFromNode(node map[string]any) (Item, bool) {
	for key, typ := range rendererTypes {
		renderer, ok := node[key].(map[string]any)
		if !ok {
			continue
		}
		item := Item{
			Type:      typ,
			Timestamp: timestampMillis(renderer),
			Author: Author{
				ChannelID: stringField(renderer, "authorExternalChannelId"),
				Name:      textField(renderer, "authorName"),
			},
		}
		if typ == TypeSuperChat || typ == TypeSuperSticker {
			amountText := textField(renderer, "purchaseAmountText")
			currency, amount, err := parseAmount(amountText)
			if err != nil {
				// A paid renderer without a parseable amount is useless
				// downstream; drop it rather than emit a zero event.
				return Item{}, false
			}
			item.Currency = currency
			item.Amount = amount
			item.BgColor = colorField(renderer, "bodyBackgroundColor", "backgroundColor", "moneyChipBackgroundColor")
		}
		return item, true
	}
	return Item{}, false
}

// parseAmount splits a purchase amount string like "$5.00", "¥1,000" or
// "NT$ 75.00" into its currency prefix and decimal value. The currency keeps
// whatever surrounding whitespace survives the split; trimming is the
// consumer's concern.
func parseAmount(s string) (string, decimal.Decimal, error) {
	s = strings.ReplaceAll(s, " ", " ")
	i := strings.IndexFunc(s, unicode.IsDigit)
	if i < 0 {
		return "", decimal.Decimal{}, fmt.Errorf("chat: no amount in %q", s)
	}
	currency := s[:i]
	num := strings.ReplaceAll(strings.TrimSpace(s[i:]), ",", "")
	amount, err := decimal.NewFromString(num)
	if err != nil {
		return "", decimal.Decimal{}, fmt.Errorf("chat: parse amount %q: %w", s, err)
	}
	return currency, amount, nil
}

// pageContinuation pulls the next replay continuation token out of a page.
func pageContinuation(page map[string]any) string {
	lc := digMap(page, "continuationContents", "liveChatContinuation")
	if lc == nil {
		return ""
	}
	return continuationFromNode(lc)
}

// findInitialContinuation locates the live chat replay continuation in the
// watch page's initial data blob. Continuation tokens appear all over the
// blob; only ones under a liveChat-related subtree belong to the chat frame.
func findInitialContinuation(data map[string]any) string {
	type queueItem struct {
		value      any
		inLiveChat bool
	}
	queue := []queueItem{{value: data}}
	for len(queue) > 0 {
		var item queueItem
		item, queue = queue[0], queue[1:]
		switch v := item.value.(type) {
		case map[string]any:
			current := item.inLiveChat || mapHasLiveChatKey(v)
			if current {
				if cont := continuationFromNode(v); cont != "" {
					return cont
				}
			}
			for key, child := range v {
				queue = append(queue, queueItem{value: child, inLiveChat: current || isLiveChatKey(key)})
			}
		case []any:
			for _, child := range v {
				queue = append(queue, queueItem{value: child, inLiveChat: item.inLiveChat})
			}
		}
	}
	return ""
}

func isLiveChatKey(key string) bool {
	return strings.Contains(strings.ToLower(key), "livechat")
}

func mapHasLiveChatKey(m map[string]any) bool {
	for key := range m {
		if isLiveChatKey(key) {
			return true
		}
	}
	return false
}

func continuationFromNode(node map[string]any) string {
	if arr, ok := node["continuations"].([]any); ok {
		for _, elem := range arr {
			m, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{
				"liveChatReplayContinuationData",
				"playerSeekContinuationData",
				"timedContinuationData",
				"invalidationContinuationData",
				"reloadContinuationData",
			} {
				if next := digMap(m, key); next != nil {
					if s, ok := next["continuation"].(string); ok && s != "" {
						return s
					}
				}
			}
		}
	}
	if endpoint := digMap(node, "continuationEndpoint", "continuationCommand"); endpoint != nil {
		if s, ok := endpoint["token"].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// timestampMillis reads timestampUsec (microseconds, sent as a string) and
// converts it to epoch milliseconds.
func timestampMillis(renderer map[string]any) int64 {
	switch v := renderer["timestampUsec"].(type) {
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n / 1000
		}
	case float64:
		return int64(v) / 1000
	}
	return 0
}

func colorField(m map[string]any, keys ...string) uint32 {
	for _, key := range keys {
		if v, ok := m[key].(float64); ok {
			return uint32(int64(v))
		}
	}
	return 0
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// textField reads a text object that is either {"simpleText": ...} or
// {"runs": [{"text": ...}, ...]}.
func textField(m map[string]any, key string) string {
	nested, ok := m[key].(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := nested["simpleText"].(string); ok {
		return s
	}
	runs, ok := nested["runs"].([]any)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, run := range runs {
		if part, ok := run.(map[string]any); ok {
			if text, ok := part["text"].(string); ok {
				b.WriteString(text)
			}
		}
	}
	return b.String()
}

func extractString(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx == -1 {
		return ""
	}
	start := idx + len(marker)
	end := strings.Index(text[start:], `"`)
	if end == -1 {
		return ""
	}
	return text[start : start+end]
}

func extractJSONObject(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx == -1 {
		return ""
	}
	start := idx + len(marker)
	for start < len(text) && (text[start] == ' ' || text[start] == '\n' || text[start] == '\r' || text[start] == '\t') {
		start++
	}
	if start >= len(text) || text[start] != '{' {
		return ""
	}
	// Braces inside JSON string values (message text can contain "}") must
	// not affect the depth count.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func digMap(m map[string]any, keys ...string) map[string]any {
	current := m
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}
