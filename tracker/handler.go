package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"warroom/auth"
	"warroom/db"
	"warroom/httputil"
	"warroom/urlparse"
	"warroom/youtube"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrPlatformUnsupported = errors.New("platform does not support syncing yet")
)

type Handler struct {
	DB     *db.CompatDB
	Syncer *Syncer
}

func writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, youtube.ErrNotConfigured):
		httputil.Error(w, http.StatusBadRequest, "YouTube API key not configured")
	case errors.Is(err, youtube.ErrNotFound), errors.Is(err, ErrAccountNotFound):
		httputil.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrPlatformUnsupported):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		httputil.Error(w, http.StatusInternalServerError, "sync failed")
	}
}

// HandleTrack classifies a pasted URL and registers it. Profile URLs become
// tracked accounts; video URLs become standalone video rows. YouTube
// profiles are synced immediately when an API key is available.
func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	httputil.MaxBody(r, httputil.DefaultBodyLimit)
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		httputil.Error(w, http.StatusBadRequest, "url is required")
		return
	}

	parsed := urlparse.Parse(req.URL)
	if parsed == nil {
		httputil.Error(w, http.StatusBadRequest, "unrecognized or unsupported URL")
		return
	}

	switch parsed.Kind {
	case urlparse.KindProfile:
		h.trackProfile(w, r, userID, parsed)
	case urlparse.KindVideo:
		h.trackVideo(w, r, userID, parsed)
	default:
		httputil.Error(w, http.StatusBadRequest, "unrecognized or unsupported URL")
	}
}

func (h *Handler) trackProfile(w http.ResponseWriter, r *http.Request, userID string, parsed *urlparse.Parsed) {
	id := uuid.New().String()
	now := db.NowUTC()
	_, err := h.DB.ExecContext(r.Context(),
		`INSERT INTO tracked_accounts (id, user_id, platform, username, profile_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, platform, username) DO UPDATE SET
			profile_url = excluded.profile_url, updated_at = excluded.updated_at`,
		id, userID, parsed.Platform, parsed.Username, parsed.URL, now, now)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to track account")
		return
	}

	// The upsert may have kept an existing row; read back the real id.
	var accountID string
	err = h.DB.QueryRowContext(r.Context(),
		"SELECT id FROM tracked_accounts WHERE user_id = ? AND platform = ? AND username = ?",
		userID, parsed.Platform, parsed.Username).Scan(&accountID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to track account")
		return
	}

	synced := 0
	if parsed.Platform == urlparse.PlatformYouTube {
		n, err := h.Syncer.SyncAccount(r.Context(), userID, accountID)
		if err != nil && !errors.Is(err, youtube.ErrNotConfigured) {
			writeSyncError(w, err)
			return
		}
		synced = n
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"type":       "account",
		"account_id": accountID,
		"platform":   parsed.Platform,
		"username":   parsed.Username,
		"synced":     synced > 0,
		"new_videos": synced,
	})
}

func (h *Handler) trackVideo(w http.ResponseWriter, r *http.Request, userID string, parsed *urlparse.Parsed) {
	if parsed.Platform == urlparse.PlatformYouTube {
		err := h.Syncer.SyncVideo(r.Context(), userID, parsed.ID)
		if err == nil {
			httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"type":              "video",
				"platform":          parsed.Platform,
				"platform_video_id": parsed.ID,
				"synced":            true,
			})
			return
		}
		if !errors.Is(err, youtube.ErrNotConfigured) {
			writeSyncError(w, err)
			return
		}
	}

	// No API access: store a placeholder row so the URL is at least kept.
	now := db.NowUTC()
	_, err := h.DB.ExecContext(r.Context(),
		`INSERT INTO videos (id, platform, platform_video_id, video_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (platform, platform_video_id) DO UPDATE SET updated_at = excluded.updated_at`,
		uuid.New().String(), parsed.Platform, parsed.ID, parsed.URL, now, now)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to track video")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"type":              "video",
		"platform":          parsed.Platform,
		"platform_video_id": parsed.ID,
		"synced":            false,
	})
}

// HandleSyncYouTube refreshes one account, or every YouTube account the
// caller tracks when no account_id is given.
func (h *Handler) HandleSyncYouTube(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	httputil.MaxBody(r, httputil.DefaultBodyLimit)
	var req struct {
		AccountID string `json:"account_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.AccountID != "" {
		n, err := h.Syncer.SyncAccount(r.Context(), userID, req.AccountID)
		if err != nil {
			writeSyncError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"synced_accounts": 1,
			"synced_videos":   n,
		})
		return
	}

	ids, err := h.youtubeAccountIDs(r.Context(), userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load accounts")
		return
	}

	accounts, videos := 0, 0
	for _, id := range ids {
		n, err := h.Syncer.SyncAccount(r.Context(), userID, id)
		if err != nil {
			if errors.Is(err, youtube.ErrNotConfigured) {
				writeSyncError(w, err)
				return
			}
			continue
		}
		accounts++
		videos += n
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"synced_accounts": accounts,
		"synced_videos":   videos,
	})
}

func (h *Handler) youtubeAccountIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := h.DB.QueryContext(ctx,
		"SELECT id FROM tracked_accounts WHERE user_id = ? AND platform = 'youtube' ORDER BY created_at", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// HandleExplore searches YouTube channels and marks the ones already
// tracked by the caller.
func (h *Handler) HandleExplore(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.Error(w, http.StatusBadRequest, "q is required")
		return
	}

	yt := h.Syncer.client(r.Context(), userID)
	channels, err := yt.SearchChannels(r.Context(), query)
	if err != nil {
		writeSyncError(w, err)
		return
	}

	tracked := map[string]bool{}
	rows, err := h.DB.QueryContext(r.Context(),
		"SELECT COALESCE(platform_account_id, ''), username FROM tracked_accounts WHERE user_id = ? AND platform = 'youtube'", userID)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var pid, username string
			if err := rows.Scan(&pid, &username); err == nil {
				if pid != "" {
					tracked[pid] = true
				}
				tracked[username] = true
			}
		}
	}

	out := make([]map[string]interface{}, 0, len(channels))
	for _, ch := range channels {
		out = append(out, map[string]interface{}{
			"id":               ch.ID,
			"title":            ch.Title,
			"username":         ch.Username,
			"description":      ch.Description,
			"avatar":           ch.Avatar,
			"subscriber_count": ch.SubscriberCount,
			"video_count":      ch.VideoCount,
			"already_tracked":  tracked[ch.ID] || (ch.Username != "" && tracked[ch.Username]),
		})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"channels": out})
}
