// Package agents is the strategy chat: a conversation with the model,
// grounded in a summary of the caller's tracked data.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"warroom/ai"
	"warroom/auth"
	"warroom/db"
	"warroom/httputil"
	"warroom/settings"
)

type Handler struct {
	DB       *db.CompatDB
	Settings *settings.Store

	BaseURL string
	Model   string
}

// historyLimit caps how many prior messages are replayed into the prompt.
const historyLimit = 20

func (h *Handler) client(ctx context.Context, userID string) *ai.Client {
	key := h.Settings.Credential(ctx, userID, "ai_api_key", "AI_API_KEY")
	return ai.New(key, h.BaseURL, h.Model)
}

// contextSummary condenses the caller's accounts, best videos and latest
// ideas into a few prompt lines.
func (h *Handler) contextSummary(ctx context.Context, userID string) string {
	var b strings.Builder

	rows, err := h.DB.QueryContext(ctx,
		`SELECT platform, username, follower_count, avg_views FROM tracked_accounts
		 WHERE user_id = ? ORDER BY follower_count DESC LIMIT 10`, userID)
	if err == nil {
		b.WriteString("Tracked accounts:\n")
		func() {
			defer rows.Close()
			for rows.Next() {
				var platform, username string
				var followers, avgViews int64
				if err := rows.Scan(&platform, &username, &followers, &avgViews); err == nil {
					fmt.Fprintf(&b, "- %s/%s: %d followers, %d avg views\n", platform, username, followers, avgViews)
				}
			}
		}()
	}

	rows, err = h.DB.QueryContext(ctx,
		`SELECT v.title, v.view_count, v.nx_avg
		 FROM videos v LEFT JOIN tracked_accounts a ON a.id = v.account_id
		 WHERE (a.user_id = ? OR v.account_id IS NULL) AND v.title != ''
		 ORDER BY v.nx_avg DESC LIMIT 10`, userID)
	if err == nil {
		b.WriteString("Top videos by performance multiple:\n")
		func() {
			defer rows.Close()
			for rows.Next() {
				var title string
				var views int64
				var nx float64
				if err := rows.Scan(&title, &views, &nx); err == nil {
					fmt.Fprintf(&b, "- %s (%.1fx, %d views)\n", title, nx, views)
				}
			}
		}()
	}

	rows, err = h.DB.QueryContext(ctx,
		`SELECT topic FROM content_ideas WHERE user_id = ? ORDER BY created_at DESC LIMIT 5`, userID)
	if err == nil {
		b.WriteString("Recent ideas:\n")
		func() {
			defer rows.Close()
			for rows.Next() {
				var topic string
				if err := rows.Scan(&topic); err == nil {
					fmt.Fprintf(&b, "- %s\n", topic)
				}
			}
		}()
	}

	if b.Len() == 0 {
		return "The user has no tracked data yet."
	}
	return b.String()
}

// HandleChat continues (or starts) a conversation. History is stored as a
// JSON message array per conversation and replayed into the prompt.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	httputil.MaxBody(r, httputil.DefaultBodyLimit)
	var req struct {
		ConversationID string `json:"conversation_id"`
		Message        string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		httputil.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	var history []ai.Message
	conversationID := req.ConversationID
	if conversationID != "" {
		var raw string
		err := h.DB.QueryRowContext(r.Context(),
			"SELECT messages FROM agent_conversations WHERE id = ? AND user_id = ?",
			conversationID, userID).Scan(&raw)
		if err != nil {
			httputil.Error(w, http.StatusNotFound, "conversation not found")
			return
		}
		_ = json.Unmarshal([]byte(raw), &history)
	}

	history = append(history, ai.Message{Role: "user", Content: req.Message})

	prompt := []ai.Message{{Role: "system", Content: ai.AgentSystemPrompt(h.contextSummary(r.Context(), userID))}}
	replay := history
	if len(replay) > historyLimit {
		replay = replay[len(replay)-historyLimit:]
	}
	prompt = append(prompt, replay...)

	resp, err := h.client(r.Context(), userID).Complete(r.Context(), prompt, ai.Options{MaxTokens: 2048})
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "chat failed")
		return
	}

	history = append(history, ai.Message{Role: "assistant", Content: resp.Content})
	raw, _ := json.Marshal(history)
	now := db.NowUTC()

	if conversationID == "" {
		conversationID = uuid.New().String()
		title := req.Message
		if len(title) > 80 {
			title = title[:80]
		}
		_, err = h.DB.ExecContext(r.Context(),
			`INSERT INTO agent_conversations (id, user_id, title, messages, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			conversationID, userID, title, string(raw), now, now)
	} else {
		_, err = h.DB.ExecContext(r.Context(),
			"UPDATE agent_conversations SET messages = ?, updated_at = ? WHERE id = ? AND user_id = ?",
			string(raw), now, conversationID, userID)
	}
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to save conversation")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"reply":           resp.Content,
		"degraded":        resp.Degraded,
	})
}

// HandleListConversations returns conversation stubs, newest first.
func (h *Handler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rows, err := h.DB.QueryContext(r.Context(),
		"SELECT id, title, updated_at FROM agent_conversations WHERE user_id = ? ORDER BY updated_at DESC LIMIT 50", userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load conversations")
		return
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		var id, title, updatedAt string
		if err := rows.Scan(&id, &title, &updatedAt); err == nil {
			out = append(out, map[string]interface{}{"id": id, "title": title, "updated_at": updatedAt})
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"conversations": out})
}
