// Package collections groups saved videos into named sets.
package collections

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"warroom/auth"
	"warroom/db"
	"warroom/httputil"
	"warroom/videos"
)

// Handler holds dependencies for collection endpoints.
type Handler struct {
	DB     *db.CompatDB
	Bucket string
}

// HandleCreate creates a new collection.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	httputil.MaxBody(r, httputil.DefaultBodyLimit)

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 200 {
		httputil.Error(w, http.StatusBadRequest, "name is required and must be under 200 characters")
		return
	}
	if len(req.Description) > 2000 {
		httputil.Error(w, http.StatusBadRequest, "description must be under 2000 characters")
		return
	}

	id := uuid.New().String()
	_, err := h.DB.ExecContext(r.Context(),
		`INSERT INTO collections (id, user_id, name, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, req.Name, req.Description, db.NowUTC())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to create collection")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// HandleList lists the user's collections with item counts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rows, err := h.DB.QueryContext(r.Context(), `
		SELECT c.id, c.name, c.description, c.created_at,
		       COUNT(ci.video_id) as item_count
		FROM collections c
		LEFT JOIN collection_items ci ON c.id = ci.collection_id
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY c.created_at DESC
		LIMIT 100
	`, userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to list collections")
		return
	}
	defer rows.Close()

	cols := make([]map[string]interface{}, 0)
	for rows.Next() {
		var id, name, createdAt string
		var description *string
		var itemCount int
		if err := rows.Scan(&id, &name, &description, &createdAt, &itemCount); err != nil {
			continue
		}
		cols = append(cols, map[string]interface{}{
			"id": id, "name": name, "description": description,
			"item_count": itemCount, "created_at": createdAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"collections": cols})
}

// HandleAddItem adds a video to a collection.
func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	collectionID := chi.URLParam(r, "id")

	httputil.MaxBody(r, httputil.DefaultBodyLimit)
	var req struct {
		VideoID string `json:"video_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VideoID == "" {
		httputil.Error(w, http.StatusBadRequest, "video_id is required")
		return
	}

	if !h.owns(r, collectionID, userID) {
		httputil.Error(w, http.StatusNotFound, "collection not found")
		return
	}

	_, err := h.DB.ExecContext(r.Context(), `
		INSERT INTO collection_items (collection_id, video_id, added_at)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, collectionID, req.VideoID, db.NowUTC())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to add to collection")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// HandleRemoveItem removes a video from a collection.
func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	collectionID := chi.URLParam(r, "id")
	videoID := chi.URLParam(r, "videoId")

	if !h.owns(r, collectionID, userID) {
		httputil.Error(w, http.StatusNotFound, "collection not found")
		return
	}

	if _, err := h.DB.ExecContext(r.Context(),
		`DELETE FROM collection_items WHERE collection_id = ? AND video_id = ?`,
		collectionID, videoID); err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to remove from collection")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// HandleGetItems returns the videos in a collection.
func (h *Handler) HandleGetItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	collectionID := chi.URLParam(r, "id")

	var name string
	var description *string
	if err := h.DB.QueryRowContext(r.Context(),
		`SELECT name, description FROM collections WHERE id = ? AND user_id = ?`, collectionID, userID,
	).Scan(&name, &description); err != nil {
		httputil.Error(w, http.StatusNotFound, "collection not found")
		return
	}

	rows, err := h.DB.QueryContext(r.Context(),
		"SELECT "+videos.Columns+`
		FROM collection_items ci
		JOIN videos v ON ci.video_id = v.id
		LEFT JOIN tracked_accounts a ON a.id = v.account_id
		WHERE ci.collection_id = ?
		ORDER BY ci.added_at DESC
		LIMIT 200
	`, collectionID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to list collection items")
		return
	}
	defer rows.Close()

	items := videos.ScanRows(rows)
	videos.AddThumbnailURLs(items, h.Bucket)

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"collection": map[string]interface{}{"id": collectionID, "name": name, "description": description},
		"videos":     items,
	})
}

// HandleDelete deletes a collection.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	collectionID := chi.URLParam(r, "id")

	res, err := h.DB.ExecContext(r.Context(),
		`DELETE FROM collections WHERE id = ? AND user_id = ?`, collectionID, userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to delete collection")
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		httputil.Error(w, http.StatusNotFound, "collection not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) owns(r *http.Request, collectionID, userID string) bool {
	var count int
	err := h.DB.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM collections WHERE id = ? AND user_id = ?`, collectionID, userID,
	).Scan(&count)
	return err == nil && count > 0
}
