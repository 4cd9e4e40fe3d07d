// Package publishing holds the manual scheduling queue.
package publishing

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"warroom/auth"
	"warroom/db"
	"warroom/httputil"
)

type Handler struct {
	DB *db.CompatDB
}

var validStatuses = map[string]bool{
	"pending":   true,
	"posted":    true,
	"failed":    true,
	"cancelled": true,
}

// HandleList returns queue entries, optionally filtered to one calendar
// month (YYYY-MM) and status.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	where := " WHERE user_id = ?"
	args := []interface{}{userID}

	if month := q.Get("month"); month != "" {
		start, err := time.Parse("2006-01", month)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		end := start.AddDate(0, 1, 0)
		where += " AND scheduled_at >= ? AND scheduled_at < ?"
		args = append(args, db.FormatTime(start), db.FormatTime(end))
	}
	if status := q.Get("status"); status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}

	rows, err := h.DB.QueryContext(r.Context(),
		`SELECT id, COALESCE(script_id, ''), platform, content, scheduled_at, status, COALESCE(posted_at, ''), created_at
		 FROM publishing_queue`+where+" ORDER BY scheduled_at", args...)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load queue")
		return
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		var id, scriptID, platform, content, scheduledAt, status, postedAt, createdAt string
		if err := rows.Scan(&id, &scriptID, &platform, &content, &scheduledAt, &status, &postedAt, &createdAt); err != nil {
			continue
		}
		entry := map[string]interface{}{
			"id":           id,
			"platform":     platform,
			"scheduled_at": scheduledAt,
			"status":       status,
			"created_at":   createdAt,
		}
		if scriptID != "" {
			entry["script_id"] = scriptID
		}
		if postedAt != "" {
			entry["posted_at"] = postedAt
		}
		var body interface{}
		if json.Unmarshal([]byte(content), &body) == nil {
			entry["content"] = body
		}
		out = append(out, entry)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"queue": out})
}

// HandleCreate schedules a post. New entries always start pending.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	httputil.MaxBody(r, httputil.DefaultBodyLimit)
	var req struct {
		ScriptID    string          `json:"script_id"`
		Platform    string          `json:"platform"`
		Content     json.RawMessage `json:"content"`
		ScheduledAt string          `json:"scheduled_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Platform == "" || req.ScheduledAt == "" {
		httputil.Error(w, http.StatusBadRequest, "platform and scheduled_at are required")
		return
	}

	scheduled, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "scheduled_at must be RFC3339")
		return
	}

	content := "{}"
	if len(req.Content) > 0 {
		content = string(req.Content)
	}
	var scriptID interface{}
	if req.ScriptID != "" {
		scriptID = req.ScriptID
	}

	id := uuid.New().String()
	_, err = h.DB.ExecContext(r.Context(),
		`INSERT INTO publishing_queue (id, user_id, script_id, platform, content, scheduled_at, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)`,
		id, userID, scriptID, req.Platform, content, db.FormatTime(scheduled), db.NowUTC())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to schedule post")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"id":           id,
		"platform":     req.Platform,
		"scheduled_at": db.FormatTime(scheduled),
		"status":       "pending",
	})
}

// HandleUpdateStatus moves an entry through pending → posted/failed.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	entryID := chi.URLParam(r, "id")

	httputil.MaxBody(r, httputil.DefaultBodyLimit)
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validStatuses[req.Status] {
		httputil.Error(w, http.StatusBadRequest, "status must be one of pending, posted, failed, cancelled")
		return
	}

	var postedAt interface{}
	if req.Status == "posted" {
		postedAt = db.NowUTC()
	}

	res, err := h.DB.ExecContext(r.Context(),
		"UPDATE publishing_queue SET status = ?, posted_at = COALESCE(?, posted_at) WHERE id = ? AND user_id = ?",
		req.Status, postedAt, entryID, userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to update entry")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		httputil.Error(w, http.StatusNotFound, "queue entry not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":     entryID,
		"status": req.Status,
	})
}
