package notifications

import "time"

// Event is what a workflow step hands to the notifier.
type Event struct {
	RecipientID  string
	Event        string
	ResourceType string
	ResourceID   string
	ActorID      string
	Body         string
}

type Notification struct {
	ID           string     `json:"id"`
	RecipientID  string     `json:"recipientId"`
	Event        string     `json:"event"`
	ResourceType string     `json:"resourceType"`
	ResourceID   string     `json:"resourceId"`
	ActorID      string     `json:"actorId"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	ReadAt       *time.Time `json:"readAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
