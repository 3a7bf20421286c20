package agent

import (
	"strings"
	"testing"

	"leadflow_backend/platform/apperr"
)

func TestParseToneAndGoalDefaults(t *testing.T) {
	tone, ok := ParseTone("")
	if !ok || tone != ToneNeutral {
		t.Fatalf("empty tone should default to neutral, got (%q, %v)", tone, ok)
	}
	goal, ok := ParseGoal("")
	if !ok || goal != GoalBookCall {
		t.Fatalf("empty goal should default to book_call, got (%q, %v)", goal, ok)
	}
	if _, ok := ParseTone("aggressive"); ok {
		t.Fatal("unknown tone must be rejected")
	}
	if _, ok := ParseGoal("close_deal"); ok {
		t.Fatal("unknown goal must be rejected")
	}
}

func TestBuildUserPromptPlaceholders(t *testing.T) {
	prompt := buildUserPrompt(LeadContext{Company: "Initech"}, ToneNeutral, GoalBookCall)

	if !strings.Contains(prompt, "- Company: Initech") {
		t.Fatalf("prompt must carry the known company:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- Name: (unknown)") {
		t.Fatalf("missing name must render as (unknown):\n%s", prompt)
	}
	if !strings.Contains(prompt, "- Notes: (none)") {
		t.Fatalf("missing notes must render as (none):\n%s", prompt)
	}
	if !strings.Contains(prompt, "Goal: book a 15-minute intro call.") {
		t.Fatalf("goal line missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Tone: neutral, professional, calm.") {
		t.Fatalf("tone line missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Do NOT invent details") {
		t.Fatalf("fabrication constraint missing:\n%s", prompt)
	}
}

func TestBuildUserPromptToneAndGoalVariants(t *testing.T) {
	prompt := buildUserPrompt(LeadContext{}, ToneDirect, GoalQualify)
	if !strings.Contains(prompt, "Tone: direct, crisp, executive-style.") {
		t.Fatalf("direct tone line missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "qualify interest") {
		t.Fatalf("qualify goal line missing:\n%s", prompt)
	}
}

func TestParseEmailReply(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSubject string
		wantErr     bool
	}{
		{"valid", `{"subject":"Quick question","body":"Hi there,\n..."}`, "Quick question", false},
		{"trims whitespace", `{"subject":"  Quick question  ","body":" x "}`, "Quick question", false},
		{"empty reply", "   ", "", true},
		{"invalid json", "Sure! Here is your email:", "", true},
		{"blank subject", `{"subject":"  ","body":"hello"}`, "", true},
		{"blank body", `{"subject":"hello","body":""}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := parseEmailReply(tt.raw)
			if tt.wantErr {
				if !apperr.Is(err, apperr.KindUpstream) {
					t.Fatalf("expected upstream error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if email.Subject != tt.wantSubject {
				t.Fatalf("subject = %q, want %q", email.Subject, tt.wantSubject)
			}
		})
	}
}

func TestParseEmailReplyInvalidJSONCarriesRaw(t *testing.T) {
	raw := "not json at all"
	_, err := parseEmailReply(raw)

	appErr, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	details, ok := appErr.Details.(map[string]string)
	if !ok || details["raw"] != raw {
		t.Fatalf("expected raw reply in details, got %v", appErr.Details)
	}
}
