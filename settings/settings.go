// Package settings stores per-user key/value configuration, including the
// third-party API credentials the sync and AI features run on.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"

	"warroom/auth"
	"warroom/db"
	"warroom/httputil"
)

// Store reads and writes the settings table.
type Store struct {
	DB *db.CompatDB
}

// Get returns the stored value for key, or "" when unset.
func (s *Store) Get(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Credential resolves an API credential: the user's stored value wins,
// falling back to the named environment variable for shared deployments.
func (s *Store) Credential(ctx context.Context, userID, key, envVar string) string {
	if v, err := s.Get(ctx, userID, key); err == nil && v != "" {
		return v
	}
	return os.Getenv(envVar)
}

// Set upserts one key for the user.
func (s *Store) Set(ctx context.Context, userID, key, value string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO settings (user_id, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		userID, key, value)
	return err
}

// All returns every setting for the user, unmasked.
func (s *Store) All(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			continue
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Mask hides the middle of credential-length values on read. Values of 8
// characters or fewer pass through unmasked; that exact boundary is load
// bearing for the settings UI.
func Mask(value string) string {
	if len(value) <= 8 {
		return value
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// Handler serves GET/POST /api/settings.
type Handler struct {
	Store *Store
}

// HandleGet returns the caller's settings with values masked.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.ExtractUserID(r)
	all, err := h.Store.All(r.Context(), userID)
	if err != nil {
		httputil.Error(w, 500, "failed to fetch settings")
		return
	}
	masked := make(map[string]string, len(all))
	for k, v := range all {
		masked[k] = Mask(v)
	}
	httputil.WriteJSON(w, 200, map[string]interface{}{"settings": masked})
}

// HandleSet stores one key/value pair for the caller.
func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.ExtractUserID(r)
	httputil.MaxBody(r, httputil.DefaultBodyLimit)

	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, 400, "invalid request body")
		return
	}
	if req.Key == "" {
		httputil.Error(w, 400, "key is required")
		return
	}
	if err := h.Store.Set(r.Context(), userID, req.Key, req.Value); err != nil {
		httputil.Error(w, 500, "failed to save settings")
		return
	}
	httputil.WriteJSON(w, 200, map[string]bool{"success": true})
}
