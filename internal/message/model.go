// Package message stores messages exchanged on an application.
package message

import "time"

// Kind distinguishes the message attached to a visit proposal from
// ordinary notes.
type Kind string

const (
	KindProposal Kind = "proposal"
	KindNote     Kind = "note"
)

// Message is a note written on an application.
type Message struct {
	ID            int64     `json:"id"`
	ApplicationID string    `json:"application_id"`
	AuthorID      string    `json:"author_id"`
	Kind          Kind      `json:"kind"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}
