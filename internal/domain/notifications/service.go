package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"appraisal/internal/platform/metrics"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// Emit records ev for its recipient and mails it when a mailer is set.
// Delivery is best effort: failures are logged and never returned.
func (s *Service) Emit(ctx context.Context, ev Event) {
	if s == nil || ev.RecipientID == "" {
		return
	}
	title := eventTitles[ev.Event]
	if title == "" {
		title = ev.Event
	}
	body := ev.Body
	if body == "" {
		body = fmt.Sprintf("%s %s was updated", ev.ResourceType, ev.ResourceID)
	}

	if err := s.store.CreateNotification(ctx, Notification{
		RecipientID:  ev.RecipientID,
		Event:        ev.Event,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		ActorID:      ev.ActorID,
		Title:        title,
		Body:         body,
	}); err != nil {
		metrics.RecordNotification(ev.Event, "failed")
		slog.Warn("notification create failed", "err", err, "event", ev.Event, "recipient", ev.RecipientID)
		return
	}
	metrics.RecordNotification(ev.Event, "stored")

	if s.Mailer == nil {
		return
	}
	email, err := s.store.RecipientEmail(ctx, ev.RecipientID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return
	}
	if email == "" {
		return
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
		return
	}
	metrics.RecordNotification(ev.Event, "mailed")
}

func (s *Service) List(ctx context.Context, recipientID string, limit, offset int) ([]Notification, int, error) {
	items, err := s.store.ListNotifications(ctx, recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountNotifications(ctx, recipientID)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) MarkRead(ctx context.Context, recipientID, notificationID string) (bool, error) {
	return s.store.MarkRead(ctx, recipientID, notificationID)
}
