// Package accounts manages the roster of tracked creator accounts.
package accounts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"warroom/auth"
	"warroom/db"
	"warroom/httputil"
)

type Handler struct {
	DB *db.CompatDB
}

// HandleList returns the caller's tracked accounts, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rows, err := h.DB.QueryContext(r.Context(),
		`SELECT id, platform, username, display_name, profile_url, avatar_url,
			follower_count, avg_views, video_count, last_synced_at, created_at
		 FROM tracked_accounts WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load accounts")
		return
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		var id, platform, username, createdAt string
		var displayName, profileURL, avatarURL, lastSynced *string
		var followers, avgViews, videoCount int64
		if err := rows.Scan(&id, &platform, &username, &displayName, &profileURL, &avatarURL,
			&followers, &avgViews, &videoCount, &lastSynced, &createdAt); err != nil {
			continue
		}
		acc := map[string]interface{}{
			"id":             id,
			"platform":       platform,
			"username":       username,
			"follower_count": followers,
			"avg_views":      avgViews,
			"video_count":    videoCount,
			"created_at":     createdAt,
		}
		if displayName != nil {
			acc["display_name"] = *displayName
		}
		if profileURL != nil {
			acc["profile_url"] = *profileURL
		}
		if avatarURL != nil {
			acc["avatar_url"] = *avatarURL
		}
		if lastSynced != nil {
			acc["last_synced_at"] = *lastSynced
		}
		out = append(out, acc)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"accounts": out})
}

// HandleDelete removes a tracked account. Its videos and snapshots go with
// it via foreign key cascade.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	accountID := chi.URLParam(r, "id")

	res, err := h.DB.ExecContext(r.Context(),
		"DELETE FROM tracked_accounts WHERE id = ? AND user_id = ?", accountID, userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		httputil.Error(w, http.StatusNotFound, "account not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}
