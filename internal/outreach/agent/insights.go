package agent

import (
	"context"
	"strings"

	"leadflow_backend/platform/apperr"

	"google.golang.org/genai"
)

const insightsSystemPrompt = `You are a B2B sales analyst.
Given a freshly qualified lead, write a short briefing for the account owner.
Rules:
- 3 to 5 bullet points, plain text, no markdown headers.
- Suggest concrete next steps based only on the provided context.
- Do NOT invent facts about the company; if context is thin, say what to find out first.`

// GenerateLeadInsights produces the follow-up briefing stored on an
// automation job after a lead is qualified. Called from the background
// worker, not from a request path.
func (g *Generator) GenerateLeadInsights(ctx context.Context, lead LeadContext) (string, error) {
	lines := []string{
		"A lead was just marked Qualified. Brief the account owner.",
		"",
		"Lead context (may be incomplete):",
		"- Name: " + orPlaceholder(lead.Name, "(unknown)"),
		"- Company: " + orPlaceholder(lead.Company, "(unknown)"),
		"- Source: " + orPlaceholder(lead.Source, "(unknown)"),
		"- Notes: " + orPlaceholder(lead.Notes, "(none)"),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(strings.Join(lines, "\n"), genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(insightsSystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.4),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "insights generation failed", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", apperr.Upstream("insights generation returned an empty reply")
	}

	return text, nil
}
