package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"warroom/auth"
	"warroom/db"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"nine chars masks", "abcdefghi", "abcd...fghi"},
		{"eight chars passes", "abcdefgh", "abcdefgh"},
		{"short passes", "abc", "abc"},
		{"empty passes", "", ""},
		{"long key", "sk-live-0123456789abcdef", "sk-l...cdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mask(tt.in); got != tt.want {
				t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

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

func authedRequest(method, url string, body interface{}, userID string) *http.Request {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(b))
	return req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID))
}

func TestHandleSetGet_ValuesMasked(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	h := &Handler{Store: &Store{DB: d}}

	rec := httptest.NewRecorder()
	h.HandleSet(rec, authedRequest("POST", "/api/settings",
		map[string]string{"key": "youtube_api_key", "value": "AIzaSyExampleKey123"}, userID))
	if rec.Code != 200 {
		t.Fatalf("set: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.HandleGet(rec, authedRequest("GET", "/api/settings", nil, userID))
	if rec.Code != 200 {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	var resp map[string]map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	got := resp["settings"]["youtube_api_key"]
	if got != "AIza...y123" {
		t.Fatalf("value not masked: %q", got)
	}
	if got == "AIzaSyExampleKey123" {
		t.Fatal("raw credential leaked through GET")
	}
}

func TestHandleSet_RequiresKey(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	h := &Handler{Store: &Store{DB: d}}

	rec := httptest.NewRecorder()
	h.HandleSet(rec, authedRequest("POST", "/api/settings",
		map[string]string{"value": "something"}, userID))
	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCredential_UserSettingBeatsEnv(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	store := &Store{DB: d}

	t.Setenv("TEST_FALLBACK_KEY", "from-env")
	if got := store.Credential(context.Background(), userID, "some_key", "TEST_FALLBACK_KEY"); got != "from-env" {
		t.Fatalf("env fallback failed: %q", got)
	}

	store.Set(context.Background(), userID, "some_key", "from-settings")
	if got := store.Credential(context.Background(), userID, "some_key", "TEST_FALLBACK_KEY"); got != "from-settings" {
		t.Fatalf("user setting should win: %q", got)
	}
}
