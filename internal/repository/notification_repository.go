package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/hiraku/stagebook/internal/model"
)

// NotificationRepo persists the mail outbox.  The booking flow
// writes one PENDING row per successful reservation; the outbound
// mail worker flips rows to SENT once the message has been handed
// off.  Delivery itself is outside this service.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Enqueue inserts a PENDING notification row.  When the record has
// no ID yet, a UUID is assigned and populated on the record along
// with the server creation timestamp.
func (r *NotificationRepo) Enqueue(ctx context.Context, n *model.MailNotification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	const q = `INSERT INTO mail_notifications (id, reservation_id, kind, recipient, subject, body, status)
	           VALUES (?, ?, ?, ?, ?, ?, 'PENDING')`
	if _, err := r.db.ExecContext(ctx, q, n.ID, n.ReservationID, n.Kind, n.Recipient, n.Subject, n.Body); err != nil {
		return err
	}
	n.Status = model.MailPending
	const sel = `SELECT created_at FROM mail_notifications WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, n.ID).Scan(&n.CreatedAt)
}

// MarkSent flips a notification to SENT.  Marking an already sent
// row again is harmless, which keeps the worker idempotent under
// message redelivery.
func (r *NotificationRepo) MarkSent(ctx context.Context, id string) error {
	const q = `UPDATE mail_notifications SET status = 'SENT' WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// ListPending returns pending notifications oldest first, capped at
// limit.  Used by the mail worker on startup to drain rows whose
// queue message was lost.
func (r *NotificationRepo) ListPending(ctx context.Context, limit int) ([]model.MailNotification, error) {
	const q = `SELECT id, reservation_id, kind, recipient, subject, body, status, created_at
	           FROM mail_notifications WHERE status = 'PENDING'
	           ORDER BY created_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.MailNotification, 0)
	for rows.Next() {
		var n model.MailNotification
		if err := rows.Scan(&n.ID, &n.ReservationID, &n.Kind, &n.Recipient, &n.Subject, &n.Body, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
