// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = events.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Auth Domain Events
// =============================================================================

// MagicLinkRequested is published when a user asks for a sign-in link.
// The notification module delivers the email.
type MagicLinkRequested struct {
	BaseEvent
	UserID   uuid.UUID `json:"userId"`
	Email    string    `json:"email"`
	LoginURL string    `json:"loginUrl"`
}

func (e MagicLinkRequested) EventName() string { return "auth.magic_link.requested" }

// UserSignedIn is published when a magic link is successfully redeemed.
type UserSignedIn struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

func (e UserSignedIn) EventName() string { return "auth.user.signed_in" }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created.
type LeadCreated struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	OwnerID uuid.UUID `json:"ownerId"`
	Company string    `json:"company"`
	Source  string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStageChanged is published when a lead moves to a different pipeline stage.
type LeadStageChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	OwnerID   uuid.UUID `json:"ownerId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
}

func (e LeadStageChanged) EventName() string { return "leads.lead.stage_changed" }

// LeadQualified is published after a qualification event is accepted and its
// automation job is durably queued. Duplicate notifications for an already
// handled event id do not publish this event again.
type LeadQualified struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	OwnerID uuid.UUID `json:"ownerId"`
	EventID string    `json:"eventId"`
	JobID   uuid.UUID `json:"jobId"`
}

func (e LeadQualified) EventName() string { return "leads.lead.qualified" }
