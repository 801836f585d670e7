package model

import "time"

// Mail notification status values.  A row is written as PENDING
// when a booking succeeds and flipped to SENT by the outbound mail
// worker once it has handed the message off.
const (
	MailPending = "PENDING"
	MailSent    = "SENT"
)

// MailNotification is the outbox record produced once per
// successful booking.  Delivery itself belongs to an external
// collaborator; the reservation core only writes the row and
// publishes a queued event, and never observes delivery success or
// failure.
//
// Fields:
//  ID            – UUID primary key.
//  ReservationID – reservation this notification is about.
//  Kind          – notification kind (e.g. "booking.confirmed").
//  Recipient     – destination email address.
//  Subject       – mail subject line.
//  Body          – mail body, including the cancellation URL.
//  Status        – PENDING or SENT.
//  CreatedAt     – creation timestamp.
type MailNotification struct {
	ID            string    `json:"id"`             // mail_notifications.id (uuid)
	ReservationID uint64    `json:"reservation_id"` // mail_notifications.reservation_id
	Kind          string    `json:"kind"`           // mail_notifications.kind
	Recipient     string    `json:"recipient"`      // mail_notifications.recipient
	Subject       string    `json:"subject"`        // mail_notifications.subject
	Body          string    `json:"body"`           // mail_notifications.body
	Status        string    `json:"status"`         // mail_notifications.status
	CreatedAt     time.Time `json:"created_at"`     // mail_notifications.created_at
}
