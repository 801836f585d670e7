package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hiraku/stagebook/internal/capacity"
	"github.com/hiraku/stagebook/internal/model"
)

// ReservationRepo is the reservation ledger.  Rows are append-mostly:
// a reservation is inserted once by the booking flow and afterwards
// only its status, check-in flag and timestamps change.  Cancellation
// is a logical status transition, never a DELETE, so capacity sums
// and check-in history can rely on cancelled rows staying present.
// All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need to begin
// transactions spanning multiple repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, performance_id, stage_idx, party_size, guest_name, guest_email,
	guest_note, status, credential_hash, checked_in, checked_in_at, cancelled_at, created_at`

// scanReservation reads one reservation row from the given scanner,
// converting nullable timestamps to pointers.
func scanReservation(row interface{ Scan(...interface{}) error }) (*model.Reservation, error) {
	var res model.Reservation
	var checkedInAt, cancelledAt sql.NullTime
	err := row.Scan(
		&res.ID, &res.PerformanceID, &res.StageIdx, &res.PartySize, &res.GuestName,
		&res.GuestEmail, &res.GuestNote, &res.Status, &res.CredentialHash,
		&res.CheckedIn, &checkedInAt, &cancelledAt, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if checkedInAt.Valid {
		t := checkedInAt.Time.UTC()
		res.CheckedInAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		res.CancelledAt = &t
	}
	return &res, nil
}

// ActiveByStage returns all non-cancelled reservations for one stage
// of a performance, oldest first.  This is the input to the advisory
// capacity check and to snapshot recomputation.
func (r *ReservationRepo) ActiveByStage(ctx context.Context, performanceID uint64, stageIdx int) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE performance_id = ? AND stage_idx = ? AND status <> 'CANCELLED'
	           ORDER BY created_at ASC, id ASC`
	return r.list(ctx, q, performanceID, stageIdx)
}

// ListByPerformanceForTroupe returns every reservation of a
// performance, cancelled rows included, newest first, after
// verifying that the performance belongs to the calling troupe.  It
// returns ErrPerformanceNotFound when the performance does not exist
// and ErrForbidden when it is owned by a different troupe.
func (r *ReservationRepo) ListByPerformanceForTroupe(ctx context.Context, performanceID, troupeID uint64) ([]model.Reservation, error) {
	const checkQ = `SELECT troupe_id FROM performances WHERE id = ?`
	var owner uint64
	if err := r.db.QueryRowContext(ctx, checkQ, performanceID).Scan(&owner); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPerformanceNotFound
		}
		return nil, err
	}
	if owner != troupeID {
		return nil, ErrForbidden
	}
	const q = `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE performance_id = ?
	           ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, performanceID)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateWithinLimit inserts a reservation only if the stage's active
// party sizes plus the new party still fit within seatLimit.  The
// re-check and the insert run in one transaction with a locking read
// over the stage's active rows, so two bookings racing for the last
// seats serialize at the store and at most one wins.  A seatLimit of
// zero skips the check (uncapped stage).
//
// On a lost race it returns the number of seats still available
// together with ErrCapacityExceeded and performs no write.  On
// success the generated ID, status and created_at are populated on
// the given record.
func (r *ReservationRepo) CreateWithinLimit(ctx context.Context, res *model.Reservation, seatLimit int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if seatLimit > 0 {
		// Lock the stage's active rows; the surrounding index on
		// (performance_id, stage_idx) makes concurrent inserts for the
		// same stage wait on the gap lock until we commit.
		const q = `SELECT ` + reservationColumns + `
		           FROM reservations
		           WHERE performance_id = ? AND stage_idx = ? AND status <> 'CANCELLED'
		           FOR UPDATE`
		rows, err := tx.QueryContext(ctx, q, res.PerformanceID, res.StageIdx)
		if err != nil {
			return 0, err
		}
		current := make([]model.Reservation, 0)
		for rows.Next() {
			row, scanErr := scanReservation(rows)
			if scanErr != nil {
				rows.Close()
				return 0, scanErr
			}
			current = append(current, *row)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return 0, err
		}
		if err := rows.Close(); err != nil {
			return 0, err
		}
		reserved := capacity.ReservedCount(current)
		available := seatLimit - reserved
		if res.Seats() > available {
			if available < 0 {
				available = 0
			}
			return available, ErrCapacityExceeded
		}
	}
	const ins = `INSERT INTO reservations
	             (performance_id, stage_idx, party_size, guest_name, guest_email, guest_note, status, credential_hash, checked_in)
	             VALUES (?, ?, ?, ?, ?, ?, 'ACTIVE', ?, FALSE)`
	result, err := tx.ExecContext(ctx, ins,
		res.PerformanceID, res.StageIdx, res.PartySize, res.GuestName,
		res.GuestEmail, res.GuestNote, res.CredentialHash,
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	res.ID = uint64(id)
	res.Status = model.StatusActive
	// Query back created_at so the caller sees the server timestamp.
	const sel = `SELECT created_at FROM reservations WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return 0, nil
}

// GetByID returns a reservation by its primary key.  It returns
// ErrReservationNotFound when no such row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

// FindByCredentialHash resolves a reservation by the SHA-256 hash of
// its cancellation credential.  An unknown hash yields
// ErrReservationNotFound; the raw credential is never stored, so
// this is the only credential lookup path.
func (r *ReservationRepo) FindByCredentialHash(ctx context.Context, hash string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE credential_hash = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, hash))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

// Cancel transitions a reservation from ACTIVE to CANCELLED and
// records the cancellation time.  The WHERE clause makes the
// transition happen exactly once: when the row is already cancelled
// no rows are affected and false is returned, which callers treat as
// an idempotent no-op rather than an error.
func (r *ReservationRepo) Cancel(ctx context.Context, id uint64, at time.Time) (bool, error) {
	const q = `UPDATE reservations SET status = 'CANCELLED', cancelled_at = ?
	           WHERE id = ? AND status <> 'CANCELLED'`
	result, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetCheckIn records the attendance flag of an active reservation.
// checked_in_at is set when checking in and cleared when checking
// out.  Cancelled rows never match the WHERE clause, so a stale
// toggle against a cancelled reservation silently changes nothing;
// the service layer rejects that case up front.
func (r *ReservationRepo) SetCheckIn(ctx context.Context, id uint64, checkedIn bool, at time.Time) error {
	if checkedIn {
		const q = `UPDATE reservations SET checked_in = TRUE, checked_in_at = ?
		           WHERE id = ? AND status = 'ACTIVE'`
		_, err := r.db.ExecContext(ctx, q, at.UTC(), id)
		return err
	}
	const q = `UPDATE reservations SET checked_in = FALSE, checked_in_at = NULL
	           WHERE id = ? AND status = 'ACTIVE'`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
