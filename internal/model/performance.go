package model

import "time"

// Performance represents a production staged by a troupe.  A
// performance owns an ordered list of stages (dated occurrences)
// and is referenced by reservations through its ID together with
// a stage index.  Performances are created and edited by the
// troupe-facing management flows; the reservation core only reads
// them.
//
// Fields:
//  ID        – primary key identifier.
//  Title     – production title shown to audiences.
//  Venue     – venue name shown to audiences.
//  TroupeID  – troupe that owns this performance.
//  Stages    – ordered stage list (by Idx ascending).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Performance struct {
	ID        uint64    `json:"id"`         // performances.id
	Title     string    `json:"title"`      // performances.title
	Venue     string    `json:"venue"`      // performances.venue
	TroupeID  uint64    `json:"troupe_id"`  // performances.troupe_id
	Stages    []Stage   `json:"stages"`     // stages rows ordered by idx
	CreatedAt time.Time `json:"created_at"` // performances.created_at
	UpdatedAt time.Time `json:"updated_at"` // performances.updated_at
}

// Stage is a single dated occurrence of a performance with its own
// seat limit.  Reservations reference a stage by (performance ID,
// Idx); the Idx of an existing stage never changes once a
// reservation points at it.  A SeatLimit of zero means the stage is
// uncapped.
//
// Fields:
//  ID            – primary key identifier.
//  PerformanceID – performance this stage belongs to.
//  Idx           – 0-based position within the performance's list.
//  PerformedOn   – calendar date of the stage.
//  StartsAt      – doors/curtain time.
//  EndsAt        – scheduled end time.
//  SeatLimit     – maximum aggregate party size; 0 = unlimited.
type Stage struct {
	ID            uint64    `json:"id"`             // stages.id
	PerformanceID uint64    `json:"performance_id"` // stages.performance_id
	Idx           int       `json:"idx"`            // stages.idx
	PerformedOn   time.Time `json:"performed_on"`   // stages.performed_on
	StartsAt      time.Time `json:"starts_at"`      // stages.starts_at
	EndsAt        time.Time `json:"ends_at"`        // stages.ends_at
	SeatLimit     int       `json:"seat_limit"`     // stages.seat_limit (0 = unlimited)
}
