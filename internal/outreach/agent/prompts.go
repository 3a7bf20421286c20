package agent

import (
	"fmt"
	"strings"
)

// Tone selects the voice of the generated email.
type Tone string

const (
	ToneNeutral  Tone = "neutral"
	ToneFriendly Tone = "friendly"
	ToneDirect   Tone = "direct"
)

// Goal selects the call to action of the generated email.
type Goal string

const (
	GoalBookCall Goal = "book_call"
	GoalGetReply Goal = "get_reply"
	GoalQualify  Goal = "qualify"
)

// ParseTone validates a raw tone, defaulting to neutral when empty.
func ParseTone(raw string) (Tone, bool) {
	switch Tone(raw) {
	case "":
		return ToneNeutral, true
	case ToneNeutral, ToneFriendly, ToneDirect:
		return Tone(raw), true
	}
	return "", false
}

// ParseGoal validates a raw goal, defaulting to book_call when empty.
func ParseGoal(raw string) (Goal, bool) {
	switch Goal(raw) {
	case "":
		return GoalBookCall, true
	case GoalBookCall, GoalGetReply, GoalQualify:
		return Goal(raw), true
	}
	return "", false
}

// LeadContext is the slice of lead data the prompt may mention. Empty fields
// render as explicit placeholders so the model cannot mistake absence for
// license to invent.
type LeadContext struct {
	Name    string
	Email   string
	Company string
	Source  string
	Stage   string
	Notes   string
}

const systemPrompt = `You are an expert SDR at a modern B2B SaaS company.
Write concise, high-quality cold outreach emails that feel human, specific, and credible.
Rules:
- Keep it 90-140 words total.
- No hype, no exaggeration, no fake metrics, no pressure.
- Use plain language. One clear CTA question.
- Include a relevant personalization line ONLY if reliable lead context exists; otherwise omit it.
- Avoid spam phrases (guarantee, free, act now, limited time).
- Output JSON only with keys: subject, body.
- The body must be ready to send (with greeting + sign-off).`

func buildUserPrompt(lead LeadContext, tone Tone, goal Goal) string {
	var goalLine string
	switch goal {
	case GoalBookCall:
		goalLine = "Goal: book a 15-minute intro call."
	case GoalQualify:
		goalLine = "Goal: ask 1-2 lightweight questions to qualify interest."
	default:
		goalLine = "Goal: get a simple reply to confirm relevance."
	}

	var toneLine string
	switch tone {
	case ToneFriendly:
		toneLine = "Tone: friendly, confident, not salesy."
	case ToneDirect:
		toneLine = "Tone: direct, crisp, executive-style."
	default:
		toneLine = "Tone: neutral, professional, calm."
	}

	lines := []string{
		"Write a short outreach email for this lead.",
		goalLine,
		toneLine,
		"",
		"Lead context (may be incomplete):",
		fmt.Sprintf("- Name: %s", orPlaceholder(lead.Name, "(unknown)")),
		fmt.Sprintf("- Email: %s", orPlaceholder(lead.Email, "(unknown)")),
		fmt.Sprintf("- Company: %s", orPlaceholder(lead.Company, "(unknown)")),
		fmt.Sprintf("- Source: %s", orPlaceholder(lead.Source, "(unknown)")),
		fmt.Sprintf("- Stage: %s", orPlaceholder(lead.Stage, "(unknown)")),
		fmt.Sprintf("- Notes: %s", orPlaceholder(lead.Notes, "(none)")),
		"",
		"Constraints:",
		"- If name is unknown, use 'Hi there,'. If name is known, use first name only.",
		"- Do NOT invent details about the company or role. If missing, stay generic but still valuable.",
		"- Keep it specific to common B2B SaaS value without naming a product unless notes provide it.",
		"",
		`Return JSON only: {"subject":"...","body":"..."}`,
	}
	return strings.Join(lines, "\n")
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}
