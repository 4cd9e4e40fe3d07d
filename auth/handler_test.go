package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"warroom/db"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	d, err := db.Open(db.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return &Handler{DB: d, JWTSecret: "test-secret"}
}

func postJSON(t *testing.T, fn http.HandlerFunc, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", url, bytes.NewReader(b))
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func register(t *testing.T, h *Handler, username, password string) string {
	t.Helper()
	rec := postJSON(t, h.HandleRegister, "/api/auth/register",
		map[string]string{"username": username, "email": username + "@test.com", "password": password})
	if rec.Code != 201 {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&resp)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatal("register returned no token")
	}
	return token
}

func TestRegisterLoginRoundtrip(t *testing.T) {
	h := newTestHandler(t)
	register(t, h, "alice", "hunter22")

	rec := postJSON(t, h.HandleLogin, "/api/auth/login",
		map[string]string{"username": "alice", "password": "hunter22"})
	if rec.Code != 200 {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	h := newTestHandler(t)
	register(t, h, "alice", "hunter22")

	rec := postJSON(t, h.HandleRegister, "/api/auth/register",
		map[string]string{"username": "alice", "email": "other@test.com", "password": "hunter22"})
	if rec.Code != 409 {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newTestHandler(t)
	register(t, h, "alice", "hunter22")

	rec := postJSON(t, h.HandleLogin, "/api/auth/login",
		map[string]string{"username": "alice", "password": "wrong"})
	if rec.Code != 401 {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_TokenGatesRequests(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice", "hunter22")

	var sawUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUserID, _ = ExtractUserID(r)
		w.WriteHeader(200)
	})
	protected := h.Middleware(next)

	req := httptest.NewRequest("GET", "/api/videos", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != 401 {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/videos", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("valid token: expected 200, got %d", rec.Code)
	}
	if sawUserID == "" {
		t.Fatal("middleware did not inject the user id")
	}

	req = httptest.NewRequest("GET", "/api/videos", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != 401 {
		t.Fatalf("garbage token: expected 401, got %d", rec.Code)
	}
}
