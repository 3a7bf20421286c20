// Package agent wraps the Google GenAI client for lead-facing text
// generation: outreach email drafting and post-qualification insights.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"

	"google.golang.org/genai"
)

// OutreachEmail is a ready-to-send draft.
type OutreachEmail struct {
	Subject string
	Body    string
}

// EmailGenerator is the generation contract the HTTP handler depends on.
type EmailGenerator interface {
	GenerateOutreachEmail(ctx context.Context, lead LeadContext, tone Tone, goal Goal) (OutreachEmail, error)
	Model() string
}

type Generator struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg config.GenAIConfig) (*Generator, error) {
	apiKey := cfg.GetGenAIAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := cfg.GetGenAIModel()
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &Generator{client: client, model: model}, nil
}

// Model reports the configured model name for response metadata.
func (g *Generator) Model() string {
	return g.model
}

var emailResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"subject": {Type: genai.TypeString},
		"body":    {Type: genai.TypeString},
	},
	Required: []string{"subject", "body"},
}

// GenerateOutreachEmail makes a single generation call; there is no retry.
// Provider failures surface as upstream errors so the HTTP layer reports 502.
func (g *Generator) GenerateOutreachEmail(ctx context.Context, lead LeadContext, tone Tone, goal Goal) (OutreachEmail, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildUserPrompt(lead, tone, goal), genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.6),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    emailResponseSchema,
	})
	if err != nil {
		return OutreachEmail{}, apperr.Wrap(apperr.KindUpstream, "text generation failed", err)
	}

	return parseEmailReply(result.Text())
}

// parseEmailReply validates the model output. Split out from the API call so
// the failure taxonomy is testable without a live client.
func parseEmailReply(raw string) (OutreachEmail, error) {
	if strings.TrimSpace(raw) == "" {
		return OutreachEmail{}, apperr.Upstream("text generation returned an empty reply")
	}

	var parsed struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return OutreachEmail{}, apperr.Upstream("text generation returned invalid JSON").
			WithDetails(map[string]string{"raw": raw})
	}

	email := OutreachEmail{
		Subject: strings.TrimSpace(parsed.Subject),
		Body:    strings.TrimSpace(parsed.Body),
	}
	if email.Subject == "" || email.Body == "" {
		return OutreachEmail{}, apperr.Upstream("text generation reply missing subject or body").
			WithDetails(map[string]string{"subject": email.Subject, "body": email.Body})
	}

	return email, nil
}
