package notification

import (
	"context"
	"errors"
	"testing"

	"leadflow_backend/internal/events"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingSender struct {
	to   []string
	urls []string
	err  error
}

func (s *recordingSender) SendMagicLinkEmail(ctx context.Context, toEmail, loginURL string) error {
	s.to = append(s.to, toEmail)
	s.urls = append(s.urls, loginURL)
	return s.err
}

func TestMagicLinkRequestedSendsEmail(t *testing.T) {
	sender := &recordingSender{}
	module := NewModule(sender, logger.New("development"))
	bus := events.NewInMemoryBus(logger.New("development"))
	module.Subscribe(bus)

	err := bus.PublishSync(context.Background(), events.MagicLinkRequested{
		BaseEvent: events.NewBaseEvent(),
		UserID:    uuid.New(),
		Email:     "lead@example.com",
		LoginURL:  "http://localhost:3000/auth/callback?token=abc",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(sender.to) != 1 || sender.to[0] != "lead@example.com" {
		t.Fatalf("expected one email to lead@example.com, got %v", sender.to)
	}
	if sender.urls[0] != "http://localhost:3000/auth/callback?token=abc" {
		t.Fatalf("unexpected login url %q", sender.urls[0])
	}
}

func TestMagicLinkDeliveryFailureSurfaces(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp refused")}
	module := NewModule(sender, logger.New("development"))
	bus := events.NewInMemoryBus(logger.New("development"))
	module.Subscribe(bus)

	err := bus.PublishSync(context.Background(), events.MagicLinkRequested{
		BaseEvent: events.NewBaseEvent(),
		Email:     "lead@example.com",
		LoginURL:  "http://localhost:3000/auth/callback?token=abc",
	})
	if err == nil {
		t.Fatal("expected delivery error to propagate through PublishSync")
	}
}
