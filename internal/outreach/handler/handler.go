package handler

import (
	"context"
	"net/http"
	"strings"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/outreach/agent"
	"leadflow_backend/internal/outreach/transport"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidOrigin  = "invalid origin"
)

// LeadLoader fetches leads owner-scoped; a foreign or missing lead is
// indistinguishable from the caller's perspective.
type LeadLoader interface {
	GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (repository.Lead, error)
}

type Handler struct {
	generator agent.EmailGenerator
	leads     LeadLoader
}

func New(generator agent.EmailGenerator, leads LeadLoader) *Handler {
	return &Handler{generator: generator, leads: leads}
}

// GenerateOutreachEmail drafts a cold outreach email for one of the caller's
// leads. The check order is fixed: origin, body shape, session, lead access,
// then a single generation attempt.
func (h *Handler) GenerateOutreachEmail(c *gin.Context) {
	if !sameOrigin(c) {
		httpkit.Error(c, http.StatusForbidden, msgInvalidOrigin, nil)
		return
	}

	var req transport.OutreachEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	tone, ok := agent.ParseTone(req.Tone)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "unknown tone", gin.H{"tone": req.Tone})
		return
	}

	goal, ok := agent.ParseGoal(req.Goal)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "unknown goal", gin.H{"goal": req.Goal})
		return
	}

	ident, authed := httpkit.MustGetIdentity(c)
	if !authed {
		return
	}

	// Owner-scoped load: a lead belonging to someone else surfaces the same
	// 404 as a missing one.
	lead, err := h.leads.GetLead(c.Request.Context(), ident.UserID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	email, err := h.generator.GenerateOutreachEmail(c.Request.Context(), leadContext(lead), tone, goal)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.OutreachEmailResponse{
		Subject: email.Subject,
		Body:    email.Body,
		LeadID:  leadID.String(),
		Model:   h.generator.Model(),
	})
}

// sameOrigin rejects requests whose Origin header names a different host.
// Requests without an Origin header (curl, server-to-server) pass.
func sameOrigin(c *gin.Context) bool {
	origin := c.GetHeader("Origin")
	host := c.Request.Host
	if origin == "" || host == "" {
		return true
	}
	return strings.Contains(origin, host)
}

func leadContext(lead repository.Lead) agent.LeadContext {
	return agent.LeadContext{
		Name:    deref(lead.ContactName),
		Email:   deref(lead.Email),
		Company: lead.Company,
		Source:  deref(lead.Source),
		Stage:   lead.Stage.String(),
		Notes:   deref(lead.Notes),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
