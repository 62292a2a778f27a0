// Package session holds the per-user active query context used by the
// refinement conversation. State is volatile: a process restart loses
// all sessions, and a new lookup for a user replaces any session in
// flight.
package session

import (
	"time"

	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

// Kind says how the active query identifies its vehicle.
type Kind string

const (
	KindVIN Kind = "vin"
	KindYMM Kind = "ymm"
)

// Stage is the refinement conversation position carried on the entry.
// StageNone means no refinement is in progress.
type Stage int

const (
	StageNone Stage = iota
	StageColor
	StageGrade
	StageOdometer
	StageRegion
)

// Entry is the single active query for one user: the identifier, the
// filters known so far, and the record fetched by the last lookup.
// Filters never contain invalid values; bad input is rejected before it
// is merged.
type Entry struct {
	Kind         Kind
	VIN          string
	Year         int
	Make         string
	Model        string
	Subseries    string
	Transmission string
	Filters      valuation.Filters
	Record       *valuation.Record
	Stage        Stage
	CreatedAt    time.Time
}

// Identifier returns the VIN or the "year make model" text.
func (e *Entry) Identifier() string {
	if e.Kind == KindVIN {
		return e.VIN
	}
	return YMMIdentifier(e.Year, e.Make, e.Model)
}

// YMMIdentifier formats a Year/Make/Model lookup key.
func YMMIdentifier(year int, make, model string) string {
	return formatYMM(year, make, model)
}

// Request builds the provider request for this entry with its current
// filters merged in.
func (e *Entry) Request() (valuation.VINRequest, valuation.YMMRequest) {
	if e.Kind == KindVIN {
		return valuation.VINRequest{
			VIN:          e.VIN,
			Subseries:    e.Subseries,
			Transmission: e.Transmission,
			Filters:      e.Filters,
		}, valuation.YMMRequest{}
	}
	return valuation.VINRequest{}, valuation.YMMRequest{
		Year:    e.Year,
		Make:    e.Make,
		Model:   e.Model,
		Filters: e.Filters,
	}
}

// Store is the session store abstraction: per-user, last-writer-wins.
// Implementations must be safe across users; same-user races resolve to
// the last write, which is the documented behavior for double-taps.
type Store interface {
	Get(userID int64) (*Entry, bool)
	Put(userID int64, e *Entry)
	Delete(userID int64)
}
