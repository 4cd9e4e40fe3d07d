package collections

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"warroom/auth"
	"warroom/db"
)

func newTestDB(t *testing.T) *db.CompatDB {
	t.Helper()
	d, err := db.Open(db.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func seedUser(t *testing.T, d *db.CompatDB) string {
	t.Helper()
	id := uuid.New().String()
	if _, err := d.ExecContext(context.Background(),
		"INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, 'x')",
		id, "user-"+id[:8], id[:8]+"@test.com"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedVideo(t *testing.T, d *db.CompatDB) string {
	t.Helper()
	id := uuid.New().String()
	if _, err := d.ExecContext(context.Background(),
		"INSERT INTO videos (id, platform, platform_video_id, title) VALUES (?, 'tiktok', ?, 'clip')",
		id, id[:8]); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return id
}

func authedRequest(method, url string, body interface{}, userID string) *http.Request {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(b))
	return req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID))
}

func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return m
}

func createCollection(t *testing.T, h *Handler, userID, name string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, authedRequest("POST", "/api/collections",
		map[string]string{"name": name}, userID))
	if rec.Code != 201 {
		t.Fatalf("create collection: %d %s", rec.Code, rec.Body.String())
	}
	return decodeJSON(t, rec)["id"].(string)
}

func TestCreate_Validation(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	h := &Handler{DB: d}

	rec := httptest.NewRecorder()
	h.HandleCreate(rec, authedRequest("POST", "/api/collections",
		map[string]string{"name": "   "}, userID))
	if rec.Code != 400 {
		t.Fatalf("blank name: expected 400, got %d", rec.Code)
	}
}

func TestAddRemoveItems_CountsRollUp(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	h := &Handler{DB: d}

	colID := createCollection(t, h, userID, "inspo")
	vid1 := seedVideo(t, d)
	vid2 := seedVideo(t, d)

	for _, vid := range []string{vid1, vid2, vid1} { // duplicate add is a no-op
		rec := httptest.NewRecorder()
		req := withChiParam(authedRequest("POST", "/api/collections/"+colID+"/videos",
			map[string]string{"video_id": vid}, userID), "id", colID)
		h.HandleAddItem(rec, req)
		if rec.Code != 200 {
			t.Fatalf("add item: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	h.HandleList(rec, authedRequest("GET", "/api/collections", nil, userID))
	cols := decodeJSON(t, rec)["collections"].([]interface{})
	if len(cols) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(cols))
	}
	if n := cols[0].(map[string]interface{})["item_count"].(float64); n != 2 {
		t.Fatalf("item_count = %v, want 2", n)
	}

	rec = httptest.NewRecorder()
	req := withChiParam(authedRequest("DELETE", "/api/collections/"+colID+"/videos/"+vid1, nil, userID), "id", colID)
	req = withChiParamExtra(req, "videoId", vid1)
	h.HandleRemoveItem(rec, req)
	if rec.Code != 200 {
		t.Fatalf("remove item: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = withChiParam(authedRequest("GET", "/api/collections/"+colID, nil, userID), "id", colID)
	h.HandleGetItems(rec, req)
	items := decodeJSON(t, rec)["videos"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 remaining item, got %d", len(items))
	}
}

// withChiParamExtra adds another URL parameter to an existing chi context.
func withChiParamExtra(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		return withChiParam(r, key, value)
	}
	rctx.URLParams.Add(key, value)
	return r
}

func TestAddItem_ForeignCollection(t *testing.T) {
	d := newTestDB(t)
	owner := seedUser(t, d)
	other := seedUser(t, d)
	h := &Handler{DB: d}

	colID := createCollection(t, h, owner, "private")
	vid := seedVideo(t, d)

	rec := httptest.NewRecorder()
	req := withChiParam(authedRequest("POST", "/api/collections/"+colID+"/videos",
		map[string]string{"video_id": vid}, other), "id", colID)
	h.HandleAddItem(rec, req)
	if rec.Code != 404 {
		t.Fatalf("another user's collection must look like 404, got %d", rec.Code)
	}
}

func TestDelete_CascadesItems(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	h := &Handler{DB: d}

	colID := createCollection(t, h, userID, "temp")
	vid := seedVideo(t, d)

	rec := httptest.NewRecorder()
	req := withChiParam(authedRequest("POST", "/api/collections/"+colID+"/videos",
		map[string]string{"video_id": vid}, userID), "id", colID)
	h.HandleAddItem(rec, req)

	rec = httptest.NewRecorder()
	req = withChiParam(authedRequest("DELETE", "/api/collections/"+colID, nil, userID), "id", colID)
	h.HandleDelete(rec, req)
	if rec.Code != 200 {
		t.Fatalf("delete: %d", rec.Code)
	}

	var count int
	d.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM collection_items WHERE collection_id = ?", colID).Scan(&count)
	if count != 0 {
		t.Fatalf("items should cascade on delete, got %d", count)
	}
}
