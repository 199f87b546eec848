package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	created   []Notification
	createErr error
	email     string
}

func (f *fakeStore) CreateNotification(_ context.Context, n Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeStore) RecipientEmail(context.Context, string) (string, error) {
	return f.email, nil
}

func (f *fakeStore) ListNotifications(context.Context, string, int, int) ([]Notification, error) {
	return f.created, nil
}

func (f *fakeStore) CountNotifications(context.Context, string) (int, error) {
	return len(f.created), nil
}

func (f *fakeStore) MarkRead(context.Context, string, string) (bool, error) {
	return true, nil
}

type recordingMailer struct {
	to      []string
	sendErr error
}

func (m *recordingMailer) Send(_ context.Context, _, to, _, _ string) error {
	m.to = append(m.to, to)
	return m.sendErr
}

func TestEmitStoresAndMails(t *testing.T) {
	store := &fakeStore{email: "dev@example.com"}
	mailer := &recordingMailer{}
	svc := New(store, mailer)

	svc.Emit(context.Background(), Event{RecipientID: "e1", Event: EventGoalApproved, ResourceType: ResourceGoal, ResourceID: "g1", ActorID: "m1"})

	if assert.Len(t, store.created, 1) {
		assert.Equal(t, "Goal approved", store.created[0].Title)
		assert.Equal(t, "m1", store.created[0].ActorID)
	}
	assert.Equal(t, []string{"dev@example.com"}, mailer.to)
}

func TestEmitSwallowsFailures(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	mailer := &recordingMailer{}
	svc := New(store, mailer)

	assert.NotPanics(t, func() {
		svc.Emit(context.Background(), Event{RecipientID: "e1", Event: EventCycleStarted})
	})
	assert.Empty(t, mailer.to)

	store.createErr = nil
	store.email = "x@example.com"
	mailer.sendErr = errors.New("smtp down")
	svc.Emit(context.Background(), Event{RecipientID: "e1", Event: EventCycleStarted})
	assert.Len(t, store.created, 1)
}

func TestEmitIgnoresMissingRecipient(t *testing.T) {
	store := &fakeStore{}
	New(store, nil).Emit(context.Background(), Event{Event: EventGoalRejected})
	assert.Empty(t, store.created)

	var nilSvc *Service
	assert.NotPanics(t, func() { nilSvc.Emit(context.Background(), Event{RecipientID: "e1"}) })
}
