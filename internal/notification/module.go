// Package notification bridges domain events to outbound delivery. It owns
// no routes; it subscribes to the event bus and sends email.
package notification

import (
	"context"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/platform/logger"
)

type Module struct {
	sender email.Sender
	log    *logger.Logger
}

func NewModule(sender email.Sender, log *logger.Logger) *Module {
	return &Module{sender: sender, log: log}
}

// Subscribe registers the module's event handlers on the bus.
func (m *Module) Subscribe(bus events.Bus) {
	bus.Subscribe(events.MagicLinkRequested{}.EventName(), events.HandlerFunc(m.onMagicLinkRequested))
	bus.Subscribe(events.LeadQualified{}.EventName(), events.HandlerFunc(m.onLeadQualified))
}

func (m *Module) onMagicLinkRequested(ctx context.Context, event events.Event) error {
	e, ok := event.(events.MagicLinkRequested)
	if !ok {
		return nil
	}

	if _, isNoop := m.sender.(email.NoopSender); isNoop {
		// Email is disabled; expose the link for local development.
		m.log.Info("magic link issued (email disabled)", "email", e.Email, "login_url", e.LoginURL)
		return nil
	}

	if err := m.sender.SendMagicLinkEmail(ctx, e.Email, e.LoginURL); err != nil {
		m.log.Error("magic link email delivery failed", "email", e.Email, "error", err)
		return err
	}

	m.log.AuthEvent("magic_link_sent", e.Email, true, "")
	return nil
}

func (m *Module) onLeadQualified(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadQualified)
	if !ok {
		return nil
	}

	m.log.Info("lead qualified",
		"lead_id", e.LeadID.String(),
		"event_id", e.EventID,
		"job_id", e.JobID.String(),
	)
	return nil
}
