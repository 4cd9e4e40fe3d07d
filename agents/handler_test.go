package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"warroom/auth"
	"warroom/db"
	"warroom/settings"
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

func authedRequest(method, url string, body interface{}, userID string) *http.Request {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(b))
	return req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID))
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return m
}

// fakeAI echoes how many messages it received so history replay is visible.
func fakeAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		body, _ := json.Marshal(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{
					"content": "reply after " + string(rune('0'+len(req.Messages))) + " messages",
				}},
			},
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(t *testing.T, d *db.CompatDB, userID, aiURL string) *Handler {
	t.Helper()
	store := &settings.Store{DB: d}
	if aiURL != "" {
		if err := store.Set(context.Background(), userID, "ai_api_key", "test-key"); err != nil {
			t.Fatal(err)
		}
	}
	return &Handler{DB: d, Settings: store, BaseURL: aiURL}
}

func TestChat_RequiresMessage(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	h := newHandler(t, d, userID, "")

	rec := httptest.NewRecorder()
	h.HandleChat(rec, authedRequest("POST", "/api/agents/chat", map[string]string{"message": "  "}, userID))
	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChat_NewConversationPersisted(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	srv := fakeAI(t)
	h := newHandler(t, d, userID, srv.URL)

	rec := httptest.NewRecorder()
	h.HandleChat(rec, authedRequest("POST", "/api/agents/chat",
		map[string]string{"message": "what should I post this week?"}, userID))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeJSON(t, rec)
	convID, _ := resp["conversation_id"].(string)
	if convID == "" {
		t.Fatal("expected a conversation id")
	}

	var title, messages string
	err := d.QueryRowContext(context.Background(),
		"SELECT title, messages FROM agent_conversations WHERE id = ?", convID).Scan(&title, &messages)
	if err != nil {
		t.Fatal(err)
	}
	if title != "what should I post this week?" {
		t.Fatalf("title = %q", title)
	}

	var history []map[string]string
	if err := json.Unmarshal([]byte(messages), &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0]["role"] != "user" || history[1]["role"] != "assistant" {
		t.Fatalf("expected user+assistant turns, got %v", history)
	}
}

func TestChat_HistoryReplayed(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	srv := fakeAI(t)
	h := newHandler(t, d, userID, srv.URL)

	rec := httptest.NewRecorder()
	h.HandleChat(rec, authedRequest("POST", "/api/agents/chat",
		map[string]string{"message": "first"}, userID))
	convID := decodeJSON(t, rec)["conversation_id"].(string)

	rec = httptest.NewRecorder()
	h.HandleChat(rec, authedRequest("POST", "/api/agents/chat",
		map[string]string{"message": "second", "conversation_id": convID}, userID))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// system + first user + first assistant + second user = 4 messages sent.
	reply := decodeJSON(t, rec)["reply"].(string)
	if !strings.Contains(reply, "4 messages") {
		t.Fatalf("history not replayed, model saw: %q", reply)
	}

	var messages string
	d.QueryRowContext(context.Background(),
		"SELECT messages FROM agent_conversations WHERE id = ?", convID).Scan(&messages)
	var history []map[string]string
	json.Unmarshal([]byte(messages), &history)
	if len(history) != 4 {
		t.Fatalf("stored history should have 4 turns, got %d", len(history))
	}
}

func TestChat_UnknownConversation(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	h := newHandler(t, d, userID, "")

	rec := httptest.NewRecorder()
	h.HandleChat(rec, authedRequest("POST", "/api/agents/chat",
		map[string]string{"message": "hi", "conversation_id": "missing"}, userID))
	if rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestChat_DegradedWithoutKey(t *testing.T) {
	t.Setenv("AI_API_KEY", "")
	d := newTestDB(t)
	userID := seedUser(t, d)
	h := newHandler(t, d, userID, "")

	rec := httptest.NewRecorder()
	h.HandleChat(rec, authedRequest("POST", "/api/agents/chat",
		map[string]string{"message": "hi"}, userID))
	if rec.Code != 200 {
		t.Fatalf("degraded chat should still answer, got %d", rec.Code)
	}
	if decodeJSON(t, rec)["degraded"] != true {
		t.Fatal("expected degraded flag")
	}
}

func TestContextSummary_EmptyWorkspace(t *testing.T) {
	d := newTestDB(t)
	userID := seedUser(t, d)
	h := newHandler(t, d, userID, "")

	summary := h.contextSummary(context.Background(), userID)
	if summary == "" {
		t.Fatal("summary must never be empty")
	}
}
