// Package events fans application status changes out to other services.
package events

import (
	"context"
	"time"
)

// TypeStatusChanged is the event type for application status changes.
const TypeStatusChanged = "application.status_changed"

// Event is a committed application status change.
type Event struct {
	Type          string    `json:"type"`
	ApplicationID string    `json:"application_id"`
	PropertyID    int64     `json:"property_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	SlotID        string    `json:"slot_id,omitempty"`
	Actor         string    `json:"actor"`
	At            time.Time `json:"at"`
}

// StatusChanged builds a status change event stamped with the current time.
func StatusChanged(applicationID string, propertyID int64, from, to, slotID, actor string) Event {
	return Event{
		Type:          TypeStatusChanged,
		ApplicationID: applicationID,
		PropertyID:    propertyID,
		From:          from,
		To:            to,
		SlotID:        slotID,
		Actor:         actor,
		At:            time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
