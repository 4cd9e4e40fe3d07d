// Package intelligence serves the aggregate dashboard and trend views built
// on top of the analytics rollups.
package intelligence

import (
	"net/http"
	"strconv"
	"time"

	"warroom/analytics"
	"warroom/auth"
	"warroom/db"
	"warroom/httputil"
	"warroom/videos"
)

type Handler struct {
	DB     *db.CompatDB
	Bucket string
}

func rangeCutoff(now time.Time, rng string) (string, bool) {
	var d time.Duration
	switch rng {
	case "7d":
		d = 7 * 24 * time.Hour
	case "30d":
		d = 30 * 24 * time.Hour
	case "90d":
		d = 90 * 24 * time.Hour
	case "1y":
		d = 365 * 24 * time.Hour
	default:
		return "", false
	}
	return db.FormatTime(now.Add(-d)), true
}

func (h *Handler) loadVideos(r *http.Request, userID, cutoff, platform, accountID string) ([]videos.Row, error) {
	where := " WHERE (a.user_id = ? OR v.account_id IS NULL)"
	args := []interface{}{userID}

	if cutoff != "" {
		where += " AND v.published_at >= ?"
		args = append(args, cutoff)
	}
	if platform != "" {
		where += " AND v.platform = ?"
		args = append(args, platform)
	}
	if accountID != "" {
		where += " AND v.account_id = ?"
		args = append(args, accountID)
	}

	query := "SELECT " + videos.Columns +
		" FROM videos v LEFT JOIN tracked_accounts a ON a.id = v.account_id" +
		where + " ORDER BY v.view_count DESC, v.id"

	rows, err := h.DB.QueryContext(r.Context(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := videos.ScanRows(rows)
	videos.AddThumbnailURLs(list, h.Bucket)
	return list, nil
}

// HandleIntelligence returns the full dashboard payload: totals, virality
// and duration breakdowns, the tracked account roster and the top videos
// for the requested time range.
func (h *Handler) HandleIntelligence(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	cutoff, _ := rangeCutoff(time.Now(), q.Get("range"))

	list, err := h.loadVideos(r, userID, cutoff, q.Get("platform"), q.Get("account_id"))
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load videos")
		return
	}
	vids := videos.ToAnalytics(list)

	accounts, err := h.loadAccounts(r, userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load accounts")
		return
	}

	top := list
	if len(top) > 3 {
		top = top[:3]
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"metrics":          analytics.Totals(vids),
		"accounts":         accounts,
		"topVideos":        top,
		"viralityBuckets":  analytics.ViralityBuckets(vids),
		"durationAnalysis": analytics.DurationAnalysis(vids),
		"videos":           list,
	})
}

func (h *Handler) loadAccounts(r *http.Request, userID string) ([]map[string]interface{}, error) {
	rows, err := h.DB.QueryContext(r.Context(),
		`SELECT t.id, t.platform, t.username, t.display_name, t.follower_count, t.avg_views, t.video_count, t.last_synced_at,
			(SELECT COUNT(*) FROM videos v WHERE v.account_id = t.id)
		 FROM tracked_accounts t WHERE t.user_id = ? ORDER BY t.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		var id, platform, username string
		var displayName, lastSynced *string
		var followers, avgViews, videoCount, tracked int64
		if err := rows.Scan(&id, &platform, &username, &displayName, &followers, &avgViews, &videoCount, &lastSynced, &tracked); err != nil {
			continue
		}
		acc := map[string]interface{}{
			"id":             id,
			"platform":       platform,
			"username":       username,
			"follower_count": followers,
			"avg_views":      avgViews,
			"video_count":    videoCount,
			"tracked_videos": tracked,
		}
		if displayName != nil {
			acc["display_name"] = *displayName
		}
		if lastSynced != nil {
			acc["last_synced_at"] = *lastSynced
		}
		out = append(out, acc)
	}
	return out, nil
}

// HandleTrends ranks the recent window by views-over-account-average and
// digests hashtags and length formats.
func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	period := q.Get("period")
	var win time.Duration
	switch period {
	case "24h":
		win = 24 * time.Hour
	case "30d":
		win = 30 * 24 * time.Hour
	default:
		win = 7 * 24 * time.Hour
	}
	cutoff := db.FormatTime(time.Now().Add(-win))

	limit := 50
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= 200 {
		limit = n
	}

	list, err := h.loadVideos(r, userID, cutoff, q.Get("platform"), "")
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load videos")
		return
	}
	if len(list) > limit {
		list = list[:limit]
	}
	vids := videos.ToAnalytics(list)

	trending := analytics.RankByNxAvg(vids)
	if len(trending) > 20 {
		trending = trending[:20]
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trending":    trending,
		"hashtags":    analytics.Hashtags(vids),
		"formats":     analytics.Formats(vids),
		"totalVideos": len(list),
	})
}
