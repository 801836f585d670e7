package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hiraku/stagebook/internal/model"
)

// PerformanceRepo provides read access to performances and their
// stages.  The reservation core never creates or edits these rows;
// they are owned by the troupe-facing management flows.  Stages are
// always returned ordered by their 0-based index so reservations
// can reference a stage by position.
type PerformanceRepo struct {
	db *sql.DB
}

// NewPerformanceRepo returns a new PerformanceRepo bound to the given database.
func NewPerformanceRepo(db *sql.DB) *PerformanceRepo { return &PerformanceRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *PerformanceRepo) DB() *sql.DB { return r.db }

// GetByID returns a single performance with its ordered stage list.
// When no performance with the given ID exists, ErrPerformanceNotFound
// is returned.
func (r *PerformanceRepo) GetByID(ctx context.Context, id uint64) (*model.Performance, error) {
	const q = `SELECT id, title, venue, troupe_id, created_at, updated_at
	           FROM performances WHERE id = ?`
	var p model.Performance
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Title, &p.Venue, &p.TroupeID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPerformanceNotFound
		}
		return nil, err
	}
	stages, err := r.stagesFor(ctx, []uint64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Stages = stages[p.ID]
	if p.Stages == nil {
		p.Stages = []model.Stage{}
	}
	return &p, nil
}

// StageAt returns the stage at the given 0-based index of a
// performance.  It returns ErrPerformanceNotFound when the
// performance does not exist and ErrStageNotFound when the index is
// out of range.
func (r *PerformanceRepo) StageAt(ctx context.Context, performanceID uint64, idx int) (*model.Stage, error) {
	p, err := r.GetByID(ctx, performanceID)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(p.Stages) {
		return nil, ErrStageNotFound
	}
	s := p.Stages[idx]
	return &s, nil
}

// ListUpcoming returns all performances that still have a stage on
// or after the given date, each with its full ordered stage list.
// Results are ordered by the earliest remaining stage date so the
// public calendar reads chronologically.
func (r *PerformanceRepo) ListUpcoming(ctx context.Context, from string) ([]model.Performance, error) {
	const q = `SELECT p.id, p.title, p.venue, p.troupe_id, p.created_at, p.updated_at
	           FROM performances p
	           JOIN stages s ON s.performance_id = p.id
	           WHERE s.performed_on >= ?
	           GROUP BY p.id, p.title, p.venue, p.troupe_id, p.created_at, p.updated_at
	           ORDER BY MIN(s.performed_on) ASC, p.id ASC`
	return r.listWithStages(ctx, q, from)
}

// ListByTroupe returns every performance owned by the given troupe,
// newest first, with stages attached.  An empty slice is returned
// when the troupe has no performances.
func (r *PerformanceRepo) ListByTroupe(ctx context.Context, troupeID uint64) ([]model.Performance, error) {
	const q = `SELECT id, title, venue, troupe_id, created_at, updated_at
	           FROM performances WHERE troupe_id = ?
	           ORDER BY created_at DESC, id DESC`
	return r.listWithStages(ctx, q, troupeID)
}

// listWithStages runs a performance query and attaches the ordered
// stage list of every returned row in a single follow-up query.
func (r *PerformanceRepo) listWithStages(ctx context.Context, q string, args ...interface{}) ([]model.Performance, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	perfs := make([]model.Performance, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var p model.Performance
		if err := rows.Scan(&p.ID, &p.Title, &p.Venue, &p.TroupeID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Stages = []model.Stage{}
		index[p.ID] = len(perfs)
		perfs = append(perfs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(perfs) == 0 {
		return perfs, nil
	}
	ids := make([]uint64, 0, len(perfs))
	for _, p := range perfs {
		ids = append(ids, p.ID)
	}
	stages, err := r.stagesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for pid, list := range stages {
		if i, ok := index[pid]; ok {
			perfs[i].Stages = list
		}
	}
	return perfs, nil
}

// stagesFor loads the stages of all given performances in one query
// and groups them by performance ID, ordered by idx.
func (r *PerformanceRepo) stagesFor(ctx context.Context, performanceIDs []uint64) (map[uint64][]model.Stage, error) {
	if len(performanceIDs) == 0 {
		return map[uint64][]model.Stage{}, nil
	}
	args := make([]interface{}, 0, len(performanceIDs))
	placeholders := make([]string, 0, len(performanceIDs))
	for _, id := range performanceIDs {
		args = append(args, id)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT id, performance_id, idx, performed_on, starts_at, ends_at, seat_limit
	      FROM stages
	      WHERE performance_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY performance_id, idx`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.Stage, len(performanceIDs))
	for rows.Next() {
		var s model.Stage
		if err := rows.Scan(&s.ID, &s.PerformanceID, &s.Idx, &s.PerformedOn, &s.StartsAt, &s.EndsAt, &s.SeatLimit); err != nil {
			return nil, err
		}
		out[s.PerformanceID] = append(out[s.PerformanceID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
