package mobility

import "fmt"

// State is the explicit classification of a platform's travel situation.
// The host stores it as two optional/scalar fields (current location and
// speed); classifying once and matching on the result keeps every predicate
// on the same decision table.
type State int

const (
	// StateInTransit: no current location. Never anchored at anything.
	StateInTransit State = iota
	// StateMoving: a location is set but speed is nonzero, arriving or
	// departing. Not settled, so never relay-eligible.
	StateMoving
	// StateStationary: a location is set and speed is exactly zero.
	StateStationary
	// StateDeepSpace: a location is set and speed is zero, but the
	// location has no associated ground surface to anchor to.
	StateDeepSpace
)

func (s State) String() string {
	switch s {
	case StateInTransit:
		return "in-transit"
	case StateMoving:
		return "moving"
	case StateStationary:
		return "stationary"
	case StateDeepSpace:
		return "deep-space"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is the result of classifying a platform: its state plus, when the
// current location has an associated ground surface, that surface.
type Status struct {
	State State
	// Anchor is the location's ground surface, set whenever one exists
	// (even while moving). Nil in transit and in deep space.
	Anchor Surface
}

// Classify derives a platform's Status from (location present?, speed,
// location has surface?). An absent or invalid platform classifies as
// in-transit, which yields the same all-false predicate results.
func Classify(p Platform) Status {
	if p == nil || !p.Valid() {
		return Status{State: StateInTransit}
	}
	loc := p.Location()
	if loc == nil {
		return Status{State: StateInTransit}
	}
	anchor := loc.Surface()
	if p.Speed() != 0 {
		return Status{State: StateMoving, Anchor: anchor}
	}
	if anchor == nil {
		return Status{State: StateDeepSpace}
	}
	return Status{State: StateStationary, Anchor: anchor}
}
