// Package content generates and stores ideas, scripts and reviews through
// the AI gateway, grounded on the caller's own performance data.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

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

	// BaseURL and Model override the AI endpoint; empty picks defaults.
	BaseURL string
	Model   string
}

func (h *Handler) client(ctx context.Context, userID string) *ai.Client {
	key := h.Settings.Credential(ctx, userID, "ai_api_key", "AI_API_KEY")
	return ai.New(key, h.BaseURL, h.Model)
}

// topPerformers returns short "title (Nx, V views)" lines for the caller's
// best videos by nx score, for use as prompt context.
func (h *Handler) topPerformers(ctx context.Context, userID string, limit int) []string {
	rows, err := h.DB.QueryContext(ctx,
		`SELECT v.title, v.nx_avg, v.view_count
		 FROM videos v LEFT JOIN tracked_accounts a ON a.id = v.account_id
		 WHERE (a.user_id = ? OR v.account_id IS NULL) AND v.title != ''
		 ORDER BY v.nx_avg DESC, v.view_count DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var title string
		var nx float64
		var views int64
		if err := rows.Scan(&title, &nx, &views); err == nil {
			out = append(out, fmt.Sprintf("- %s (%.1fx, %d views)", title, nx, views))
		}
	}
	return out
}

// HandleGenerateIdeas asks the model for content ideas seeded with the
// caller's top performers and persists whatever comes back. Unparseable
// output degrades to a single idea wrapping the raw text.
func (h *Handler) HandleGenerateIdeas(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	httputil.MaxBody(r, httputil.DefaultBodyLimit)
	var req struct {
		Niche    string `json:"niche"`
		Platform string `json:"platform"`
		Count    int    `json:"count"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	messages := ai.IdeasMessages(ai.IdeaContext{
		Niche:      req.Niche,
		Platform:   req.Platform,
		Count:      req.Count,
		TopContent: h.topPerformers(r.Context(), userID, 10),
	})

	resp, err := h.client(r.Context(), userID).Complete(r.Context(), messages, ai.Options{JSON: true, Temperature: 0.9})
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "idea generation failed")
		return
	}

	raw := ai.StripFences(resp.Content)
	var parsed []map[string]interface{}
	if !resp.Degraded {
		parsed = ai.DecodeIdeaList(raw)
	}
	if len(parsed) == 0 {
		parsed = []map[string]interface{}{{
			"topic":     "Generated ideas",
			"reasoning": raw,
		}}
	}

	now := db.NowUTC()
	ideas := make([]map[string]interface{}, 0, len(parsed))
	for _, p := range parsed {
		id := uuid.New().String()
		str := func(k string) string {
			s, _ := p[k].(string)
			return s
		}
		_, err := h.DB.ExecContext(r.Context(),
			`INSERT INTO content_ideas (id, user_id, topic, hook, angle, format, target_platform, ai_reasoning, niche, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, userID, str("topic"), str("hook"), str("angle"), str("format"),
			str("target_platform"), str("reasoning"), req.Niche, now)
		if err != nil {
			continue
		}
		p["id"] = id
		ideas = append(ideas, p)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ideas":    ideas,
		"degraded": resp.Degraded,
	})
}

// HandleListIdeas returns the caller's saved ideas, newest first.
func (h *Handler) HandleListIdeas(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rows, err := h.DB.QueryContext(r.Context(),
		`SELECT id, topic, hook, angle, format, target_platform, ai_reasoning, niche, status, created_at
		 FROM content_ideas WHERE user_id = ? ORDER BY created_at DESC LIMIT 100`, userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load ideas")
		return
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		var id, topic, hook, angle, format, platform, reasoning, niche, status, createdAt string
		if err := rows.Scan(&id, &topic, &hook, &angle, &format, &platform, &reasoning, &niche, &status, &createdAt); err != nil {
			continue
		}
		out = append(out, map[string]interface{}{
			"id":              id,
			"topic":           topic,
			"hook":            hook,
			"angle":           angle,
			"format":          format,
			"target_platform": platform,
			"reasoning":       reasoning,
			"niche":           niche,
			"status":          status,
			"created_at":      createdAt,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ideas": out})
}

// HandleGenerateScript turns an idea into a platform-shaped script draft.
func (h *Handler) HandleGenerateScript(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	httputil.MaxBody(r, httputil.DefaultBodyLimit)
	var req struct {
		Idea     string `json:"idea"`
		IdeaID   string `json:"idea_id"`
		Platform string `json:"platform"`
		Tone     string `json:"tone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Idea == "" || req.Platform == "" {
		httputil.Error(w, http.StatusBadRequest, "idea and platform are required")
		return
	}

	messages := ai.ScriptMessages(ai.ScriptContext{
		Idea:       req.Idea,
		Platform:   req.Platform,
		Tone:       req.Tone,
		References: h.topPerformers(r.Context(), userID, 5),
	})

	resp, err := h.client(r.Context(), userID).Complete(r.Context(), messages, ai.Options{MaxTokens: 3000})
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "script generation failed")
		return
	}

	title := req.Idea
	if len(title) > 100 {
		title = title[:100]
	}

	id := uuid.New().String()
	now := db.NowUTC()
	var ideaID interface{}
	if req.IdeaID != "" {
		ideaID = req.IdeaID
	}
	_, err = h.DB.ExecContext(r.Context(),
		`INSERT INTO content_scripts (id, user_id, idea_id, title, platform, tone, plain_text, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 'draft', ?, ?)`,
		id, userID, ideaID, title, req.Platform, req.Tone, resp.Content, now, now)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to save script")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"script": map[string]interface{}{
			"id":         id,
			"title":      title,
			"platform":   req.Platform,
			"tone":       req.Tone,
			"plain_text": resp.Content,
			"status":     "draft",
		},
		"degraded": resp.Degraded,
	})
}

// HandleListScripts returns the caller's scripts, newest first.
func (h *Handler) HandleListScripts(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rows, err := h.DB.QueryContext(r.Context(),
		`SELECT id, COALESCE(idea_id, ''), title, platform, tone, plain_text, status, created_at
		 FROM content_scripts WHERE user_id = ? ORDER BY created_at DESC LIMIT 100`, userID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load scripts")
		return
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		var id, ideaID, title, platform, tone, text, status, createdAt string
		if err := rows.Scan(&id, &ideaID, &title, &platform, &tone, &text, &status, &createdAt); err != nil {
			continue
		}
		script := map[string]interface{}{
			"id":         id,
			"title":      title,
			"platform":   platform,
			"tone":       tone,
			"plain_text": text,
			"status":     status,
			"created_at": createdAt,
		}
		if ideaID != "" {
			script["idea_id"] = ideaID
		}
		out = append(out, script)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"scripts": out})
}

// reviewResult is the shape the review prompt asks the model for.
type reviewResult struct {
	Score        int      `json:"score"`
	HookScore    int      `json:"hook_score"`
	Flags        []string `json:"flags"`
	Suggestions  []string `json:"suggestions"`
	Strengths    []string `json:"strengths"`
	ImprovedHook string   `json:"improved_hook,omitempty"`
}

// HandleReviewScript scores a script. A response the model did not return
// as JSON degrades to a neutral score carrying the raw text as a
// suggestion; the request still succeeds.
func (h *Handler) HandleReviewScript(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.ExtractUserID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	httputil.MaxBody(r, httputil.DefaultBodyLimit)
	var req struct {
		ScriptID string `json:"script_id"`
		Script   string `json:"script"`
		Platform string `json:"platform"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	script := req.Script
	platform := req.Platform
	if req.ScriptID != "" && script == "" {
		err := h.DB.QueryRowContext(r.Context(),
			"SELECT plain_text, platform FROM content_scripts WHERE id = ? AND user_id = ?",
			req.ScriptID, userID).Scan(&script, &platform)
		if err != nil {
			httputil.Error(w, http.StatusNotFound, "script not found")
			return
		}
	}
	if script == "" {
		httputil.Error(w, http.StatusBadRequest, "script or script_id is required")
		return
	}

	messages := ai.ReviewMessages(script, platform, h.topPerformers(r.Context(), userID, 5))
	resp, err := h.client(r.Context(), userID).Complete(r.Context(), messages, ai.Options{JSON: true, Temperature: 0.3})
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "review failed")
		return
	}

	raw := ai.StripFences(resp.Content)
	var result reviewResult
	if resp.Degraded || !ai.DecodeObject(raw, &result) || result.Score == 0 {
		result = reviewResult{
			Score:       70,
			HookScore:   70,
			Flags:       []string{},
			Suggestions: []string{raw},
			Strengths:   []string{},
		}
	}

	feedback, _ := json.Marshal(result)
	id := uuid.New().String()
	now := db.NowUTC()
	var scriptID interface{}
	if req.ScriptID != "" {
		scriptID = req.ScriptID
	}
	_, err = h.DB.ExecContext(r.Context(),
		`INSERT INTO content_reviews (id, user_id, script_id, score, hook_score, feedback, ai_analysis, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, scriptID, result.Score, result.HookScore, string(feedback), resp.Content, now)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to save review")
		return
	}

	if req.ScriptID != "" {
		_, _ = h.DB.ExecContext(r.Context(),
			"UPDATE content_scripts SET status = 'in_review', updated_at = ? WHERE id = ? AND user_id = ?",
			now, req.ScriptID, userID)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"review_id": id,
		"review":    result,
		"degraded":  resp.Degraded,
	})
}
