// Package holodex contains a minimal client for the Holodex video metadata
// API, covering the single call the collector needs: listing a channel's
// finished streams newest-first, 50 at a time.
package holodex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://holodex.net/api/v2"

// Client calls the Holodex v2 API. APIKey is required; the other fields have
// working zero-value defaults. Limiter, when set, paces requests so a long
// backfill does not hammer the shared API.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
}

// New returns a client with the default base URL and a conservative request
// rate (one page every two seconds, small burst).
func New(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		Limiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return DefaultBaseURL
}

// Video is one entry of the metadata feed. EndActual is nil for entries that
// are not finished broadcasts (premieres, still-live streams, plain uploads).
type Video struct {
	ID        string
	Title     string
	EndActual *time.Time
}

// videoJSON is the wire shape; end_actual is ISO-8601 or absent.
type videoJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	EndActual string `json:"end_actual"`
}

// ListVideos fetches one page of a channel's past streams, sorted by publish
// time descending. A non-2xx response is an error; the caller treats it as a
// hard failure for the whole run.
func (c *Client) ListVideos(ctx context.Context, channelID string, offset, limit int) ([]Video, error) {
	if channelID == "" {
		return nil, fmt.Errorf("holodex: channel id empty")
	}
	if limit <= 0 {
		limit = 50
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/videos", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("channel_id", channelID)
	q.Set("status", "past")
	q.Set("type", "stream")
	q.Set("include", "live_info")
	q.Set("sort", "published_at")
	q.Set("order", "desc")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("X-APIKEY", c.APIKey)

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("holodex: list videos: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("holodex: list videos status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var body []videoJSON
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("holodex: decode videos: %w", err)
	}
	out := make([]Video, 0, len(body))
	for _, v := range body {
		video := Video{ID: v.ID, Title: v.Title}
		if v.EndActual != "" {
			end, err := time.Parse(time.RFC3339, v.EndActual)
			if err != nil {
				return nil, fmt.Errorf("holodex: video %s end_actual %q: %w", v.ID, v.EndActual, err)
			}
			end = end.UTC()
			video.EndActual = &end
		}
		out = append(out, video)
	}
	return out, nil
}
