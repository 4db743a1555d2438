package models

import (
	"encoding/json"
	"time"
)

// NotificationEventType names the workflow events the core emits.
type NotificationEventType string

const (
	EventEnquiryCreated      NotificationEventType = "enquiry.created"
	EventEnquiryTransitioned NotificationEventType = "enquiry.transitioned"
	EventEnquiryEscalated    NotificationEventType = "enquiry.escalated"
	EventQueryRaised         NotificationEventType = "query.raised"
	EventQueryResponded      NotificationEventType = "query.responded"
)

// NotificationEvent is the fire-and-forget signal handed to the emitter.
// The core never observes delivery.
type NotificationEvent struct {
	Type        NotificationEventType  `json:"type"`
	EnquiryID   string                 `json:"enquiry_id"`
	ActorID     string                 `json:"actor_id"`
	RecipientID string                 `json:"recipient_id,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// Notification is the persisted form of an emitted event.
type Notification struct {
	ID          string                `db:"id" json:"id"`
	EventType   NotificationEventType `db:"event_type" json:"event_type"`
	EnquiryID   string                `db:"enquiry_id" json:"enquiry_id"`
	RecipientID *string               `db:"recipient_id" json:"recipient_id,omitempty"`
	ActorID     string                `db:"actor_id" json:"actor_id"`
	Payload     json.RawMessage       `db:"payload" json:"payload,omitempty"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
}

// NotificationFilter constrains notification listings.
type NotificationFilter struct {
	RecipientID string
	EnquiryID   string
	Page        int
	PageSize    int
}
