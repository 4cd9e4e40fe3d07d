package accounts

import (
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

func seedAccount(t *testing.T, d *db.CompatDB, userID, username string) string {
	t.Helper()
	id := uuid.New().String()
	if _, err := d.ExecContext(context.Background(),
		"INSERT INTO tracked_accounts (id, user_id, platform, username) VALUES (?, ?, 'youtube', ?)",
		id, userID, username); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return id
}

func authedRequest(method, url string, userID string) *http.Request {
	req := httptest.NewRequest(method, url, nil)
	return req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID))
}

func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestList_OnlyOwnAccounts(t *testing.T) {
	d := newTestDB(t)
	alice := seedUser(t, d)
	bob := seedUser(t, d)
	seedAccount(t, d, alice, "mine")
	seedAccount(t, d, bob, "theirs")

	h := &Handler{DB: d}
	rec := httptest.NewRecorder()
	h.HandleList(rec, authedRequest("GET", "/api/accounts", alice))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&resp)
	accounts := resp["accounts"].([]interface{})
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	if accounts[0].(map[string]interface{})["username"] != "mine" {
		t.Fatal("listed another user's account")
	}
}

func TestDelete_CascadesVideos(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	accountID := seedAccount(t, d, userID, "chan")
	if _, err := d.ExecContext(context.Background(),
		"INSERT INTO videos (id, account_id, platform, platform_video_id) VALUES (?, ?, 'youtube', 'v1')",
		uuid.New().String(), accountID); err != nil {
		t.Fatal(err)
	}

	h := &Handler{DB: d}
	rec := httptest.NewRecorder()
	req := withChiParam(authedRequest("DELETE", "/api/accounts/"+accountID, userID), "id", accountID)
	h.HandleDelete(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var count int
	d.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM videos WHERE account_id = ?", accountID).Scan(&count)
	if count != 0 {
		t.Fatalf("videos should cascade with the account, got %d", count)
	}
}

func TestDelete_NotFoundAndNotOwned(t *testing.T) {
	d := newTestDB(t)
	alice := seedUser(t, d)
	bob := seedUser(t, d)
	accountID := seedAccount(t, d, alice, "mine")

	h := &Handler{DB: d}

	rec := httptest.NewRecorder()
	req := withChiParam(authedRequest("DELETE", "/api/accounts/nope", alice), "id", "nope")
	h.HandleDelete(rec, req)
	if rec.Code != 404 {
		t.Fatalf("missing id: expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = withChiParam(authedRequest("DELETE", "/api/accounts/"+accountID, bob), "id", accountID)
	h.HandleDelete(rec, req)
	if rec.Code != 404 {
		t.Fatalf("foreign account: expected 404, got %d", rec.Code)
	}
}
