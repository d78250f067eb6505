package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultWatchBase = "https://www.youtube.com"
	defaultAPIBase   = "https://www.youtube.com/youtubei/v1"
	userAgent        = "Mozilla/5.0 (compatible; sc-stats/1.0)"
)

// ReplayClient opens replay sessions. The zero value talks to youtube.com
// with a default HTTP client; tests point WatchBase/APIBase at a mock server.
type ReplayClient struct {
	HTTPClient *http.Client
	WatchBase  string
	APIBase    string
}

func (c *ReplayClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (c *ReplayClient) watchBase() string {
	if c.WatchBase != "" {
		return c.WatchBase
	}
	return defaultWatchBase
}

func (c *ReplayClient) apiBase() string {
	if c.APIBase != "" {
		return c.APIBase
	}
	return defaultAPIBase
}

// Open bootstraps a replay session for a video: it fetches the watch page,
// extracts the innertube API key, client version and the initial replay
// continuation, and returns a Replay positioned at the first page.
func (c *ReplayClient) Open(ctx context.Context, videoID string) (*Replay, error) {
	if videoID == "" {
		return nil, errors.New("chat: video id empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.watchBase()+"/watch?v="+url.QueryEscape(videoID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: fetch watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat: watch page status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	text := string(body)

	apiKey := extractString(text, `"INNERTUBE_API_KEY":"`)
	clientVersion := extractString(text, `"INNERTUBE_CLIENT_VERSION":"`)
	if apiKey == "" || clientVersion == "" {
		return nil, errors.New("chat: could not locate api key or client version")
	}

	var initJSON string
	for _, marker := range []string{
		`ytInitialData"] = `,
		`ytInitialData" = `,
		`ytInitialData":`,
		`ytInitialData = `,
		`window["ytInitialData"] = `,
	} {
		initJSON = extractJSONObject(text, marker)
		if initJSON != "" {
			break
		}
	}
	if initJSON == "" {
		return nil, errors.New("chat: could not locate initial data")
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(initJSON), &data); err != nil {
		return nil, fmt.Errorf("chat: parse initial data: %w", err)
	}
	continuation := findInitialContinuation(data)
	if continuation == "" {
		return nil, errors.New("chat: replay continuation not found in initial data")
	}

	return &Replay{
		client:        c,
		videoID:       videoID,
		apiKey:        apiKey,
		clientVersion: clientVersion,
		continuation:  continuation,
		alive:         true,
	}, nil
}

// Replay pages through the chat replay of one finished broadcast.
type Replay struct {
	client        *ReplayClient
	videoID       string
	apiKey        string
	clientVersion string
	continuation  string
	alive         bool
}

// VideoID returns the video this session belongs to.
func (r *Replay) VideoID() string { return r.videoID }

// IsAlive reports whether the feed may still yield pages.
func (r *Replay) IsAlive() bool { return r.alive }

// Next fetches the next replay page. It returns the page's items and advances
// the continuation; once the feed stops handing out a fresh continuation the
// session goes not-alive. Calling Next on a dead session returns an empty page.
func (r *Replay) Next(ctx context.Context) ([]Item, error) {
	if !r.alive {
		return nil, nil
	}
	endpoint := r.client.apiBase() + "/live_chat/get_live_chat_replay?key=" + url.QueryEscape(r.apiKey)
	payload := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    "WEB",
				"clientVersion": r.clientVersion,
				"hl":            "en",
			},
		},
		"continuation": r.continuation,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: replay page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, fmt.Errorf("chat: replay status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	var page map[string]any
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("chat: decode replay page: %w", err)
	}

	items := itemsFromPage(page)
	next := pageContinuation(page)
	// A missing or repeated token means the replay is exhausted; repeating
	// the same token would loop on the last page forever.
	if next == "" || next == r.continuation {
		r.alive = false
	}
	r.continuation = next
	return items, nil
}
