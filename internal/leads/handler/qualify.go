package handler

import (
	"net/http"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QualifyLead ingests one lead-qualification event from the automation
// caller. Input validation runs before the session check, so a malformed
// body is reported as 400 even to anonymous callers; everything after the
// 401 gate goes through the idempotent service flow.
func (h *Handler) QualifyLead(c *gin.Context) {
	var req transport.QualifyLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	missing := make([]string, 0, 2)
	if req.LeadID == "" {
		missing = append(missing, "leadId")
	}
	if req.EventID == "" {
		missing = append(missing, "eventId")
	}
	if len(missing) > 0 {
		httpkit.Error(c, http.StatusBadRequest, "missing required fields", gin.H{"fields": missing})
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	// Only qualification events reach this endpoint; any other stage value
	// is a caller bug, not a pipeline move.
	if req.Stage != nil && *req.Stage != domain.StageQualified.String() {
		httpkit.Error(c, http.StatusBadRequest, "stage must be Qualified", gin.H{"stage": *req.Stage})
		return
	}

	ident, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.QualifyLead(c.Request.Context(), ident.UserID(), leadID, req.EventID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.QualifyLeadResponse{
		OK:      true,
		Status:  result.Status,
		EventID: result.EventID,
	})
}
