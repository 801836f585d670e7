// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  Both queues are declared durable by publisher and
// consumer alike so declaration stays idempotent.
const (
	// LedgerQueue carries every ledger mutation: bookings,
	// cancellations and check-in toggles.  The occupancy refresher
	// consumes it to recompute capacity snapshots, replacing the
	// UI-bound live-subscription model with an explicit channel.
	LedgerQueue = "reservation.ledger"
	// MailQueue carries queued booking confirmations for the
	// outbound mail worker.
	MailQueue = "mail.outbound"
)

// LedgerEvent kinds.
const (
	KindReservationCreated   = "reservation.created"
	KindReservationCancelled = "reservation.cancelled"
	KindCheckInToggled       = "reservation.checkin_toggled"
)

// LedgerEvent is published whenever a reservation row changes in a
// way that affects capacity or the live troupe dashboard.  It
// carries enough for consumers to recompute without re-reading the
// mutated row itself.
type LedgerEvent struct {
	EventID       string `json:"event_id"` // uuid, for dedup/tracing
	Kind          string `json:"kind"`
	ReservationID uint64 `json:"reservation_id"`
	PerformanceID uint64 `json:"performance_id"`
	StageIdx      int    `json:"stage_idx"`
	PartySize     int    `json:"party_size"`
	CheckedIn     bool   `json:"checked_in,omitempty"` // only meaningful for check-in toggles
	OccurredAt    string `json:"occurred_at"`          // RFC3339 UTC
}

// MailQueuedEvent is published once per successful booking alongside
// the PENDING outbox row.  The mail worker writes the message out
// and marks the row SENT.
type MailQueuedEvent struct {
	EventID        string `json:"event_id"`
	NotificationID string `json:"notification_id"`
	ReservationID  uint64 `json:"reservation_id"`
	Recipient      string `json:"recipient"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	QueuedAt       string `json:"queued_at"` // RFC3339 UTC
}
