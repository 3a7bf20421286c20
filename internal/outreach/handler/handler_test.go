package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/outreach/agent"
	"leadflow_backend/internal/outreach/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubGenerator struct {
	email agent.OutreachEmail
	err   error

	gotLead agent.LeadContext
	gotTone agent.Tone
	gotGoal agent.Goal
}

func (s *stubGenerator) GenerateOutreachEmail(ctx context.Context, lead agent.LeadContext, tone agent.Tone, goal agent.Goal) (agent.OutreachEmail, error) {
	s.gotLead = lead
	s.gotTone = tone
	s.gotGoal = goal
	if s.err != nil {
		return agent.OutreachEmail{}, s.err
	}
	return s.email, nil
}

func (s *stubGenerator) Model() string { return "test-model" }

type stubLeadLoader struct {
	lead repository.Lead
	err  error
}

func (s *stubLeadLoader) GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (repository.Lead, error) {
	if s.err != nil {
		return repository.Lead{}, s.err
	}
	return s.lead, nil
}

func newOutreachRouter(generator *stubGenerator, loader *stubLeadLoader, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(generator, loader)

	router := gin.New()
	router.POST("/generate-outreach-email", func(c *gin.Context) {
		if userID != "" {
			uid, _ := uuid.Parse(userID)
			c.Set(httpkit.ContextUserIDKey, uid)
		}
		c.Next()
	}, h.GenerateOutreachEmail)
	return router
}

func postOutreach(router *gin.Engine, body, origin, host string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate-outreach-email", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if host != "" {
		req.Host = host
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validLead(ownerID uuid.UUID) repository.Lead {
	contact := "Ada Lovelace"
	return repository.Lead{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Company:     "Initech",
		ContactName: &contact,
		Stage:       domain.StageContacted,
	}
}

func TestGenerateOutreachEmailHappyPath(t *testing.T) {
	ownerID := uuid.New()
	lead := validLead(ownerID)
	generator := &stubGenerator{email: agent.OutreachEmail{Subject: "Quick question", Body: "Hi Ada,\n..."}}
	router := newOutreachRouter(generator, &stubLeadLoader{lead: lead}, ownerID.String())

	rec := postOutreach(router, `{"leadId":"`+lead.ID.String()+`","tone":"friendly","goal":"qualify"}`, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp transport.OutreachEmailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Subject != "Quick question" || resp.Model != "test-model" || resp.LeadID != lead.ID.String() {
		t.Fatalf("unexpected response %+v", resp)
	}
	if generator.gotTone != agent.ToneFriendly || generator.gotGoal != agent.GoalQualify {
		t.Fatalf("generator got tone=%q goal=%q", generator.gotTone, generator.gotGoal)
	}
	if generator.gotLead.Name != "Ada Lovelace" || generator.gotLead.Company != "Initech" {
		t.Fatalf("generator got lead %+v", generator.gotLead)
	}
}

func TestGenerateOutreachEmailCrossOriginForbidden(t *testing.T) {
	router := newOutreachRouter(&stubGenerator{}, &stubLeadLoader{}, uuid.New().String())

	rec := postOutreach(router, `{"leadId":"`+uuid.New().String()+`"}`, "https://evil.example", "app.example.com")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestGenerateOutreachEmailSameOriginAllowed(t *testing.T) {
	ownerID := uuid.New()
	lead := validLead(ownerID)
	generator := &stubGenerator{email: agent.OutreachEmail{Subject: "s", Body: "b"}}
	router := newOutreachRouter(generator, &stubLeadLoader{lead: lead}, ownerID.String())

	rec := postOutreach(router, `{"leadId":"`+lead.ID.String()+`"}`, "https://app.example.com", "app.example.com")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateOutreachEmailValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"leadId":`},
		{"missing lead id", `{}`},
		{"bad lead id", `{"leadId":"nope"}`},
		{"bad tone", `{"leadId":"` + uuid.New().String() + `","tone":"aggressive"}`},
		{"bad goal", `{"leadId":"` + uuid.New().String() + `","goal":"close"}`},
	}

	router := newOutreachRouter(&stubGenerator{}, &stubLeadLoader{}, uuid.New().String())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postOutreach(router, tt.body, "", "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGenerateOutreachEmailRequiresSession(t *testing.T) {
	router := newOutreachRouter(&stubGenerator{}, &stubLeadLoader{}, "")

	rec := postOutreach(router, `{"leadId":"`+uuid.New().String()+`"}`, "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGenerateOutreachEmailLeadNotFound(t *testing.T) {
	router := newOutreachRouter(&stubGenerator{}, &stubLeadLoader{err: apperr.NotFound("lead not found")}, uuid.New().String())

	rec := postOutreach(router, `{"leadId":"`+uuid.New().String()+`"}`, "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGenerateOutreachEmailUpstreamFailureIs502(t *testing.T) {
	ownerID := uuid.New()
	lead := validLead(ownerID)
	generator := &stubGenerator{err: apperr.Upstream("text generation returned an empty reply")}
	router := newOutreachRouter(generator, &stubLeadLoader{lead: lead}, ownerID.String())

	rec := postOutreach(router, `{"leadId":"`+lead.ID.String()+`"}`, "", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 (body %s)", rec.Code, rec.Body.String())
	}
}
