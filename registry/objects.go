package registry

import (
	"github.com/signalsfoundry/platform-relay/mobility"
	"github.com/signalsfoundry/platform-relay/model"
	"github.com/signalsfoundry/platform-relay/signalbus"
)

// Surface is a concrete ground or platform surface. It implements
// mobility.Surface.
type Surface struct {
	index    model.SurfaceIndex
	name     string
	platform *Platform
	valid    bool
}

func (s *Surface) Valid() bool               { return s != nil && s.valid }
func (s *Surface) Index() model.SurfaceIndex { return s.index }
func (s *Surface) Name() string              { return s.name }

// Platform returns the owning platform for platform surfaces, nil for
// ground surfaces.
func (s *Surface) Platform() mobility.Platform {
	if s == nil || s.platform == nil {
		return nil
	}
	return s.platform
}

// Location is a named stop. It implements mobility.Location.
type Location struct {
	name    string
	surface *Surface
}

func (l *Location) Name() string { return l.name }

// Surface returns the ground surface under the location, nil for deep
// space stops.
func (l *Location) Surface() mobility.Surface {
	if l == nil || l.surface == nil {
		return nil
	}
	return l.surface
}

// Platform is a concrete mobile platform. It implements mobility.Platform.
type Platform struct {
	id       model.PlatformID
	name     string
	speed    float64
	location *Location
	surface  *Surface
	valid    bool
}

func (p *Platform) Valid() bool          { return p != nil && p.valid }
func (p *Platform) ID() model.PlatformID { return p.id }
func (p *Platform) Name() string         { return p.name }
func (p *Platform) Speed() float64       { return p.speed }

// Location returns the current stop, or nil while in transit.
func (p *Platform) Location() mobility.Location {
	if p == nil || p.location == nil {
		return nil
	}
	return p.location
}

// Entity is any object standing on a surface. It implements
// mobility.Entity; the registry hands them out so callers can answer
// co-location queries.
type Entity struct {
	surface *Surface
	valid   bool
}

// EntityOn places a new entity on the given surface.
func EntityOn(s *Surface) *Entity {
	return &Entity{surface: s, valid: true}
}

func (e *Entity) Valid() bool { return e != nil && e.valid }

func (e *Entity) Surface() mobility.Surface {
	if e == nil || e.surface == nil {
		return nil
	}
	return e.surface
}

type slotKey struct {
	channel model.WireChannel
	slot    model.ConnectorSlot
}

// Network is one wire network's signal snapshot. It implements
// signalbus.Network.
type Network struct {
	signals map[model.SignalID]int
}

func (n *Network) Signals() map[model.SignalID]int { return n.signals }

// SetSignal sets one signal's count on the wire. A zero count stays on the
// wire; use ClearSignal to remove an identifier entirely.
func (n *Network) SetSignal(id model.SignalID, count int) {
	n.signals[id] = count
}

// ClearSignal removes an identifier from the wire.
func (n *Network) ClearSignal(id model.SignalID) {
	delete(n.signals, id)
}

// Node is a concrete connectable circuit node. It implements
// signalbus.Node.
type Node struct {
	id          string
	valid       bool
	connectable bool
	networks    map[slotKey]*Network
}

func (n *Node) ID() string        { return n.id }
func (n *Node) Valid() bool       { return n != nil && n.valid }
func (n *Node) Connectable() bool { return n.connectable }

// SetConnectable toggles whether the node exposes circuit connectors. A
// node with the capability off answers every query like one with no
// connections.
func (n *Node) SetConnectable(connectable bool) { n.connectable = connectable }

// Network returns the wire network on the given channel and slot, or nil.
func (n *Node) Network(channel model.WireChannel, slot model.ConnectorSlot) signalbus.Network {
	if n == nil {
		return nil
	}
	net, ok := n.networks[slotKey{channel: channel, slot: slot}]
	if !ok {
		return nil
	}
	return net
}
