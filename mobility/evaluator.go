// Package mobility decides whether a mobile platform is eligible to
// participate in a long-distance signal relay: anchored at a target ground
// surface and simultaneously at rest.
//
// Like signalbus, everything here is a stateless query over borrowed
// references. Operations re-validate on every call and degrade to
// false/nil/empty on absent or invalid input; nothing panics and nothing is
// cached across calls.
package mobility

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/platform-relay/internal/logging"
	"github.com/signalsfoundry/platform-relay/model"
)

// Surface is a borrowed reference to a ground surface. Platform returns
// the owning platform for platform surfaces, nil otherwise.
type Surface interface {
	Valid() bool
	Index() model.SurfaceIndex
	Platform() Platform
}

// Location is a named stop a platform can occupy. Surface returns the
// associated ground surface, or nil for locations with no body under them.
type Location interface {
	Name() string
	Surface() Surface
}

// Platform is a borrowed reference to a mobile platform. Location returns
// nil while the platform is in transit between stops.
type Platform interface {
	Valid() bool
	ID() model.PlatformID
	Speed() float64
	Location() Location
}

// Entity is any object sitting on some surface.
type Entity interface {
	Valid() bool
	Surface() Surface
}

// Registry is the live, host-owned enumeration of platforms. Lookups go
// through it on every call because platform references do not survive a
// save/restore cycle; only the numeric identity does.
type Registry interface {
	Platforms() []Platform
	Platform(id model.PlatformID) Platform
}

// Evaluator answers anchoring and motion queries against an injected
// registry.
type Evaluator struct {
	reg Registry
	log logging.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger attaches a structured logger for debug-level gate tracing.
func WithLogger(log logging.Logger) Option {
	return func(e *Evaluator) { e.log = log }
}

// NewEvaluator constructs an Evaluator over the given registry. A nil
// registry is tolerated; every registry-backed query then degrades to its
// empty result.
func NewEvaluator(reg Registry, opts ...Option) *Evaluator {
	e := &Evaluator{reg: reg, log: logging.Noop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.Noop()
	}
	return e
}

// IsMobilitySurface reports whether s is the surface of a mobile platform.
func (e *Evaluator) IsMobilitySurface(s Surface) bool {
	return e.PlatformOf(s) != nil
}

// PlatformOf returns the platform a surface belongs to, or nil when the
// surface is absent, invalid, or not a platform surface.
func (e *Evaluator) PlatformOf(s Surface) Platform {
	if s == nil || !s.Valid() {
		return nil
	}
	return s.Platform()
}

// PlatformOfEntity returns the platform the entity is standing on, or nil.
func (e *Evaluator) PlatformOfEntity(ent Entity) Platform {
	if ent == nil || !ent.Valid() {
		return nil
	}
	return e.PlatformOf(ent.Surface())
}

// IsAtRest reports whether the platform has a current location and its
// speed is exactly zero. Both conditions are required: a platform that has
// arrived but is still decelerating is not settled, and a platform in
// transit is never at rest no matter what speed the host reports.
func (e *Evaluator) IsAtRest(p Platform) bool {
	switch Classify(p).State {
	case StateStationary, StateDeepSpace:
		return true
	default:
		return false
	}
}

// OrbitedSurface returns the ground surface under the platform's current
// location, or nil when the platform is absent, invalid, in transit, or
// stopped somewhere with no body beneath it.
func (e *Evaluator) OrbitedSurface(p Platform) Surface {
	return Classify(p).Anchor
}

// IsAnchoredAt is the relay-eligibility gate: it resolves the platform by
// stable identity from the live registry and reports whether it is at rest
// with its orbited surface matching surfaceIndex. A platform that is
// approaching but not yet settled is not anchored.
func (e *Evaluator) IsAnchoredAt(id model.PlatformID, surfaceIndex model.SurfaceIndex) bool {
	anchored, state := e.anchoredAt(id, surfaceIndex)
	e.log.Debug(context.Background(), "anchoring gate",
		logging.Int64("platform", int64(id)),
		logging.Int("surface", int(surfaceIndex)),
		logging.String("state", state.String()),
		logging.Bool("anchored", anchored),
	)
	return anchored
}

func (e *Evaluator) anchoredAt(id model.PlatformID, surfaceIndex model.SurfaceIndex) (bool, State) {
	if e.reg == nil {
		return false, StateInTransit
	}
	p := e.reg.Platform(id)
	if p == nil || !p.Valid() {
		return false, StateInTransit
	}
	status := Classify(p)
	if status.State != StateStationary {
		return false, status.State
	}
	return status.Anchor != nil && status.Anchor.Index() == surfaceIndex, status.State
}

// AllPlatforms returns every currently valid platform in the registry.
// Order follows the host enumeration; no ordering is guaranteed.
func (e *Evaluator) AllPlatforms() []Platform {
	if e.reg == nil {
		return nil
	}
	var out []Platform
	for _, p := range e.reg.Platforms() {
		if p != nil && p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

// SamePlatform reports whether two entities stand on the same platform,
// compared by stable identity. Two distinct references to one platform
// compare equal; an entity that resolves to no platform never matches.
func (e *Evaluator) SamePlatform(a, b Entity) bool {
	pa := e.PlatformOfEntity(a)
	pb := e.PlatformOfEntity(b)
	if pa == nil || pb == nil {
		return false
	}
	return pa.ID() == pb.ID()
}

// StatusString renders a human-readable description of the platform's
// state. Diagnostic only; no decision logic reads it.
func (e *Evaluator) StatusString(p Platform) string {
	if p == nil || !p.Valid() {
		return "invalid platform"
	}
	status := Classify(p)
	switch status.State {
	case StateInTransit:
		return "in transit"
	case StateMoving:
		return fmt.Sprintf("moving near %s (speed %.2f)", p.Location().Name(), p.Speed())
	case StateDeepSpace:
		return fmt.Sprintf("stationary at %s (no surface below)", p.Location().Name())
	case StateStationary:
		return fmt.Sprintf("anchored at %s (surface %d)", p.Location().Name(), status.Anchor.Index())
	default:
		return status.State.String()
	}
}
