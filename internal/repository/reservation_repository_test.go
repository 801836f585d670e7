package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hiraku/stagebook/internal/model"
)

// The capacity re-check must never treat a partially read ledger as
// the full ledger: if the locking read dies mid-iteration, the
// booking has to fail instead of committing against an undercounted
// stage.  The driver below delivers one active row and then breaks
// the connection.

var errReadBroken = errors.New("connection reset mid-iteration")

type brokenReadConn struct {
	insertRan bool
}

type brokenReadConnector struct{ conn *brokenReadConn }

func (c brokenReadConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c brokenReadConnector) Driver() driver.Driver                        { return nil }

func (c *brokenReadConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *brokenReadConn) Close() error              { return nil }
func (c *brokenReadConn) Begin() (driver.Tx, error) { return noopTx{}, nil }

func (c *brokenReadConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(query, "FOR UPDATE") {
		return nil, errors.New("unexpected query: " + query)
	}
	return &truncatedRows{}, nil
}

func (c *brokenReadConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	c.insertRan = true
	return driver.RowsAffected(1), nil
}

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

// truncatedRows yields a single active reservation and then fails,
// as a connection dropped between fetches would.
type truncatedRows struct {
	delivered bool
}

func (r *truncatedRows) Columns() []string {
	return []string{
		"id", "performance_id", "stage_idx", "party_size", "guest_name", "guest_email",
		"guest_note", "status", "credential_hash", "checked_in", "checked_in_at", "cancelled_at", "created_at",
	}
}

func (r *truncatedRows) Close() error { return nil }

func (r *truncatedRows) Next(dest []driver.Value) error {
	if r.delivered {
		return errReadBroken
	}
	r.delivered = true
	row := []driver.Value{
		int64(1), int64(7), int64(0), int64(1), "Aoi", "aoi@example.org",
		"", "ACTIVE", strings.Repeat("a", 64), false, nil, nil,
		time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
	}
	copy(dest, row)
	return nil
}

func TestCreateWithinLimit_FailedCapacityReadAbortsInsert(t *testing.T) {
	t.Parallel()

	conn := &brokenReadConn{}
	db := sql.OpenDB(brokenReadConnector{conn: conn})
	defer db.Close()

	repo := NewReservationRepo(db)
	res := &model.Reservation{PerformanceID: 7, StageIdx: 0, PartySize: 1}
	_, err := repo.CreateWithinLimit(context.Background(), res, 2)
	if err == nil {
		t.Fatal("CreateWithinLimit succeeded on a capacity read that died mid-iteration")
	}
	if !errors.Is(err, errReadBroken) {
		t.Fatalf("err = %v, want the read failure surfaced", err)
	}
	if conn.insertRan {
		t.Fatal("INSERT executed despite the failed capacity read")
	}
}
