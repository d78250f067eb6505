package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sc-stats/backend/telemetry"
)

type statusResponse struct {
	SuperChats     int64      `json:"super_chats"`
	DoneVideos     int64      `json:"done_videos"`
	Streamers      int64      `json:"streamers"`
	LastCollection *time.Time `json:"last_collection,omitempty"`
	LastJobRun     string     `json:"last_job_run,omitempty"`
}

// HandleStatus reports collection progress: row counts, the latest run
// checkpoint, and the scheduler heartbeat.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := telemetry.LoggerWithCorr(ctx)
	var resp statusResponse

	counts := []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM super_chats`, &resp.SuperChats},
		{`SELECT COUNT(*) FROM done_videos`, &resp.DoneVideos},
		{`SELECT COUNT(*) FROM streamers WHERE COALESCE(inactive,FALSE)=FALSE`, &resp.Streamers},
	}
	for _, c := range counts {
		if err := h.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			log.Error("status query failed", "query", c.query, "err", err)
			http.Error(w, "status unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	var last sql.NullTime
	if err := h.db.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM collections`).Scan(&last); err != nil {
		log.Error("status checkpoint query failed", "err", err)
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	if last.Valid {
		t := last.Time.UTC()
		resp.LastCollection = &t
	}

	var hb string
	err := h.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key='job_collect_last'`).Scan(&hb)
	if err != nil && err != sql.ErrNoRows {
		log.Error("status heartbeat query failed", "err", err)
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	resp.LastJobRun = hb

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
