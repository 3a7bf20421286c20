// Package transport defines the request and response shapes for the leads API.
package transport

import (
	"time"

	"leadflow_backend/internal/leads/repository"
)

type CreateLeadRequest struct {
	Company     string  `json:"company" validate:"required,min=1,max=200"`
	ContactName *string `json:"contactName" validate:"omitempty,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=40"`
	Source      *string `json:"source" validate:"omitempty,max=200"`
	Notes       *string `json:"notes" validate:"omitempty,max=5000"`
	Stage       *string `json:"stage"`
}

type UpdateLeadRequest struct {
	Company     *string `json:"company" validate:"omitempty,min=1,max=200"`
	ContactName *string `json:"contactName" validate:"omitempty,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=40"`
	Source      *string `json:"source" validate:"omitempty,max=200"`
	Notes       *string `json:"notes" validate:"omitempty,max=5000"`
}

type UpdateStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

type QualifyLeadRequest struct {
	LeadID  string  `json:"leadId"`
	EventID string  `json:"eventId"`
	Stage   *string `json:"stage"`
}

type QualifyLeadResponse struct {
	OK      bool   `json:"ok"`
	Status  string `json:"status"`
	EventID string `json:"eventId"`
}

type LeadResponse struct {
	ID               string     `json:"id"`
	Company          string     `json:"company"`
	ContactName      *string    `json:"contactName,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Source           *string    `json:"source,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	Stage            string     `json:"stage"`
	QualifiedAt      *time.Time `json:"qualifiedAt,omitempty"`
	QualifiedEventID *string    `json:"qualifiedEventId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:               lead.ID.String(),
		Company:          lead.Company,
		ContactName:      lead.ContactName,
		Email:            lead.Email,
		Phone:            lead.Phone,
		Source:           lead.Source,
		Notes:            lead.Notes,
		Stage:            lead.Stage.String(),
		QualifiedAt:      lead.QualifiedAt,
		QualifiedEventID: lead.QualifiedEventID,
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}
