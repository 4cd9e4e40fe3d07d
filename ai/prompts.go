package ai

import (
	"fmt"
	"strings"
)

const ideasSystemPrompt = `You are an expert content strategist. Generate specific, actionable content ideas based on current trends and gap analysis.
Each idea must include:
- topic: clear topic
- hook: compelling first line or 3-second hook
- angle: unique perspective or angle
- format: content format (talking head, b-roll, text overlay, etc.)
- target_platform: best platform for this content
- reasoning: why this would work right now

Return as JSON array of ideas.`

// IdeaContext is the grounding data for idea generation.
type IdeaContext struct {
	Niche      string
	Platform   string
	Count      int
	Trends     []string
	TopContent []string
}

// IdeasMessages builds the chat for POST /api/ideas/generate.
func IdeasMessages(ctx IdeaContext) []Message {
	count := ctx.Count
	if count <= 0 {
		count = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d content ideas.\n", count)
	if ctx.Niche != "" {
		fmt.Fprintf(&b, "Niche: %s\n", ctx.Niche)
	}
	if ctx.Platform != "" {
		fmt.Fprintf(&b, "Target platform: %s\n", ctx.Platform)
	} else {
		b.WriteString("All platforms\n")
	}
	if len(ctx.Trends) > 0 {
		fmt.Fprintf(&b, "Current trends:\n%s\n", strings.Join(ctx.Trends, "\n"))
	}
	if len(ctx.TopContent) > 0 {
		fmt.Fprintf(&b, "Top performing content:\n%s\n", strings.Join(ctx.TopContent, "\n"))
	}
	b.WriteString("\nBe specific with hooks. Write the actual words, not descriptions. Make each idea different in format and angle.")

	return []Message{
		{Role: "system", Content: ideasSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// scriptTemplates shape the output per platform; tiktok is the fallback.
var scriptTemplates = map[string]string{
	"tiktok": `Format as:
HOOK (0-3s): [exact words + visual direction]
SETUP (3-8s): [transition to value]
BEAT 1 (8-15s): [first point]
BEAT 2 (15-22s): [second point]
BEAT 3 (22-28s): [third point or twist]
PAYOFF (28-35s): [resolution]
CTA (35-40s): [call to action]
TEXT OVERLAYS: [suggested text on screen]
SOUND: [suggested audio/music]`,
	"youtube": `Format as:
TITLE: [click-worthy title]
THUMBNAIL CONCEPT: [visual description]
HOOK (0-30s): [exact script for opening]
INTRO (30s-1m): [context setting]
SECTION 1: [main point 1 with b-roll notes]
SECTION 2: [main point 2 with b-roll notes]
SECTION 3: [main point 3 with b-roll notes]
CONCLUSION: [wrap up]
CTA: [subscribe/like/comment prompt]
DESCRIPTION: [SEO-optimized description]
TAGS: [relevant tags]`,
	"instagram": `Format as:
HOOK (first frame): [scroll-stopping visual + text]
SLIDES/SCENES: [numbered content beats]
CTA: [action prompt]
CAPTION: [formatted Instagram caption]
HASHTAGS: [30 relevant hashtags]`,
	"twitter": `Format as:
TWEET: [280 chars max, punchy and standalone]
THREAD (if applicable):
1/ [opening hook]
2/ [context]
3/ [insight]
4/ [proof/example]
5/ [CTA]`,
	"linkedin": `Format as:
LINE 1: [scroll-stopping opener - short!]

[blank line]
SHORT PARAGRAPHS: [2-3 sentences each, story format]

LESSON: [key takeaway]

QUESTION: [engagement prompt]`,
}

// ScriptContext is the input for script generation.
type ScriptContext struct {
	Idea       string
	Platform   string
	Tone       string
	References []string
}

// ScriptMessages builds the chat for POST /api/scripts/generate.
func ScriptMessages(ctx ScriptContext) []Message {
	template, ok := scriptTemplates[ctx.Platform]
	if !ok {
		template = scriptTemplates["tiktok"]
	}

	system := fmt.Sprintf("You are an expert content creator and scriptwriter. Write viral-worthy scripts optimized for %s. Be specific. Write exact words, not descriptions.", ctx.Platform)
	if ctx.Tone != "" {
		system += " Tone: " + ctx.Tone
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s script for this idea:\n%s\n\n%s\n", ctx.Platform, ctx.Idea, template)
	if len(ctx.References) > 0 {
		fmt.Fprintf(&b, "\nReference content that inspired this:\n%s\n", strings.Join(ctx.References, "\n"))
	}
	b.WriteString("\nWrite the COMPLETE script with exact words. Be specific and creative.")

	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}
}

const reviewSystemPrompt = `You are a content review expert who has analyzed thousands of viral videos. Score and review content scripts. Return JSON with:
- score: 1-100 overall prediction
- hook_score: 1-100 hook strength
- flags: array of issues found
- suggestions: array of specific improvements
- strengths: array of what's good
- improved_hook: better hook alternative if score < 80`

// ReviewMessages builds the chat for POST /api/scripts/review.
func ReviewMessages(script, platform string, topPatterns []string) []Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Review this %s script:\n\n%s\n", platform, script)
	if len(topPatterns) > 0 {
		fmt.Fprintf(&b, "\nTop performing patterns in this niche:\n%s\n", strings.Join(topPatterns, "\n"))
	}
	b.WriteString("\nScore it honestly and give actionable feedback.")

	return []Message{
		{Role: "system", Content: reviewSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// AgentSystemPrompt frames the strategy-chat assistant with live data
// pulled from the caller's workspace.
func AgentSystemPrompt(contextSummary string) string {
	return fmt.Sprintf(`You are the content intelligence assistant. You help with content strategy, trend analysis, idea generation, script writing, and content review.

%s

Be concise, data-driven, and actionable. When the user asks about trends or content strategy, reference the actual data. If they ask you to generate ideas or scripts, do it directly.`, contextSummary)
}
