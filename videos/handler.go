package videos

import (
	"net/http"
	"strconv"

	"warroom/auth"
	"warroom/db"
	"warroom/httputil"
)

type Handler struct {
	DB     *db.CompatDB
	Bucket string
}

var sortColumns = map[string]string{
	"view_count":       "v.view_count",
	"like_count":       "v.like_count",
	"comment_count":    "v.comment_count",
	"share_count":      "v.share_count",
	"engagement_rate":  "v.engagement_rate",
	"nx_avg":           "v.nx_avg",
	"published_at":     "v.published_at",
	"created_at":       "v.created_at",
	"duration_seconds": "v.duration_seconds",
	"title":            "v.title",
}

// HandleList returns the caller's videos with optional platform, account and
// title filters. Sort columns are whitelisted; anything unknown falls back to
// view_count descending.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()

	where := " WHERE (a.user_id = ? OR v.account_id IS NULL)"
	args := []interface{}{userID}

	if platform := q.Get("platform"); platform != "" {
		where += " AND v.platform = ?"
		args = append(args, platform)
	}
	if accountID := q.Get("account_id"); accountID != "" {
		where += " AND v.account_id = ?"
		args = append(args, accountID)
	}
	if search := q.Get("search"); search != "" {
		where += " AND LOWER(v.title) LIKE LOWER(?)"
		args = append(args, "%"+search+"%")
	}

	orderCol := "v.view_count"
	if col, ok := sortColumns[q.Get("sort")]; ok {
		orderCol = col
	}
	dir := "DESC"
	if q.Get("order") == "asc" {
		dir = "ASC"
	}

	limit := 50
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= 200 {
		limit = n
	}
	offset := 0
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		offset = n
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM videos v LEFT JOIN tracked_accounts a ON a.id = v.account_id" + where
	if err := h.DB.QueryRowContext(r.Context(), countQuery, args...).Scan(&total); err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to count videos")
		return
	}

	query := "SELECT " + Columns +
		" FROM videos v LEFT JOIN tracked_accounts a ON a.id = v.account_id" +
		where + " ORDER BY " + orderCol + " " + dir + ", v.id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := h.DB.QueryContext(r.Context(), query, args...)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load videos")
		return
	}
	defer rows.Close()

	list := ScanRows(rows)
	AddThumbnailURLs(list, h.Bucket)

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"videos": list,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
