// Package registry is an in-memory stand-in for the host simulation's live
// object store: platforms, surfaces, circuit nodes, and wire networks.
//
// The query engines only ever borrow references; this registry is what owns
// and mutates them. Removing an object marks it invalid, so references held
// across the removal observe Valid() == false exactly the way a borrowed
// reference into the host goes stale when the object is destroyed.
//
// The registry's own maps are guarded by a mutex, but the borrowed object
// handles it hands out are not: their getters read fields the mutators
// write. Borrowers must read them on the same cooperative tick that drives
// mutation, mirroring the host's single-threaded update model.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/platform-relay/mobility"
	"github.com/signalsfoundry/platform-relay/model"
	"github.com/signalsfoundry/platform-relay/signalbus"
)

var (
	ErrPlatformExists   = errors.New("platform already exists")
	ErrPlatformNotFound = errors.New("platform not found")
	ErrSurfaceExists    = errors.New("surface already exists")
	ErrSurfaceNotFound  = errors.New("surface not found")
	ErrNodeExists       = errors.New("node already exists")
	ErrNodeNotFound     = errors.New("node not found")
	ErrBadInput         = errors.New("invalid input")
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventPlatformUpdated EventType = iota
	EventNetworkAttached
	EventNetworkDetached
)

// Event is emitted to subscribers on registry changes. Network attach and
// detach events are the feed an external caller needs to track true wire
// network membership, which the signalbus engine itself cannot enumerate.
type Event struct {
	Type     EventType
	Platform model.PlatformID
	NodeID   string
	Channel  model.WireChannel
	Slot     model.ConnectorSlot
}

// Registry is a store of platforms, surfaces, and circuit nodes. Its maps
// are safe for concurrent lookup; see the package comment for the borrowed
// reference constraint. It implements mobility.Registry.
type Registry struct {
	mu sync.RWMutex

	platforms map[model.PlatformID]*Platform
	surfaces  map[model.SurfaceIndex]*Surface
	nodes     map[string]*Node

	subs      map[uint64]func(Event)
	nextSubID uint64
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		platforms: make(map[model.PlatformID]*Platform),
		surfaces:  make(map[model.SurfaceIndex]*Surface),
		nodes:     make(map[string]*Node),
		subs:      make(map[uint64]func(Event)),
	}
}

//
// ---------- Surfaces ----------
//

// AddSurface registers a ground surface under a stable index.
func (r *Registry) AddSurface(index model.SurfaceIndex, name string) (*Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.surfaces[index]; exists {
		return nil, fmt.Errorf("%w: %d", ErrSurfaceExists, index)
	}
	s := &Surface{index: index, name: name, valid: true}
	r.surfaces[index] = s
	return s, nil
}

// AddPlatformSurface registers the surface that belongs to a platform (the
// deck entities aboard stand on). The platform must already exist.
func (r *Registry) AddPlatformSurface(index model.SurfaceIndex, platformID model.PlatformID) (*Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.surfaces[index]; exists {
		return nil, fmt.Errorf("%w: %d", ErrSurfaceExists, index)
	}
	p, ok := r.platforms[platformID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPlatformNotFound, platformID)
	}
	s := &Surface{index: index, name: p.name, platform: p, valid: true}
	r.surfaces[index] = s
	p.surface = s
	return s, nil
}

// Surface returns a surface by index, or nil if not found.
func (r *Registry) Surface(index model.SurfaceIndex) *Surface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.surfaces[index]
}

//
// ---------- Platforms ----------
//

// AddPlatform registers a new platform, initially in transit.
func (r *Registry) AddPlatform(id model.PlatformID, name string) (*Platform, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.platforms[id]; exists {
		return nil, fmt.Errorf("%w: %d", ErrPlatformExists, id)
	}
	p := &Platform{id: id, name: name, valid: true}
	r.platforms[id] = p
	return p, nil
}

// RemovePlatform deletes a platform and invalidates outstanding references
// to it and to its surface.
func (r *Registry) RemovePlatform(id model.PlatformID) error {
	r.mu.Lock()
	p, ok := r.platforms[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrPlatformNotFound, id)
	}
	p.valid = false
	if p.surface != nil {
		p.surface.valid = false
		delete(r.surfaces, p.surface.index)
	}
	delete(r.platforms, id)
	subs := r.snapshotSubs()
	r.mu.Unlock()

	r.notify(subs, Event{Type: EventPlatformUpdated, Platform: id})
	return nil
}

// Platform returns the platform with the given identity, or nil. Implements
// mobility.Registry.
func (r *Registry) Platform(id model.PlatformID) mobility.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.platforms[id]
	if !ok {
		return nil
	}
	return p
}

// Platforms returns a snapshot of all platforms. Implements
// mobility.Registry; order is map iteration order.
func (r *Registry) Platforms() []mobility.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mobility.Platform, 0, len(r.platforms))
	for _, p := range r.platforms {
		out = append(out, p)
	}
	return out
}

// SetPlatformOrbit parks the platform's current location over a registered
// ground surface.
func (r *Registry) SetPlatformOrbit(id model.PlatformID, locationName string, surfaceIndex model.SurfaceIndex) error {
	r.mu.Lock()
	p, ok := r.platforms[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrPlatformNotFound, id)
	}
	s, ok := r.surfaces[surfaceIndex]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrSurfaceNotFound, surfaceIndex)
	}
	p.location = &Location{name: locationName, surface: s}
	subs := r.snapshotSubs()
	r.mu.Unlock()

	r.notify(subs, Event{Type: EventPlatformUpdated, Platform: id})
	return nil
}

// SetPlatformDeepSpace sets a current location with no surface beneath it.
func (r *Registry) SetPlatformDeepSpace(id model.PlatformID, locationName string) error {
	return r.updatePlatform(id, func(p *Platform) {
		p.location = &Location{name: locationName}
	})
}

// ClearPlatformLocation puts the platform in transit.
func (r *Registry) ClearPlatformLocation(id model.PlatformID) error {
	return r.updatePlatform(id, func(p *Platform) {
		p.location = nil
	})
}

// SetPlatformSpeed updates the platform's scalar speed.
func (r *Registry) SetPlatformSpeed(id model.PlatformID, speed float64) error {
	return r.updatePlatform(id, func(p *Platform) {
		p.speed = speed
	})
}

func (r *Registry) updatePlatform(id model.PlatformID, mutate func(*Platform)) error {
	r.mu.Lock()
	p, ok := r.platforms[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrPlatformNotFound, id)
	}
	mutate(p)
	subs := r.snapshotSubs()
	r.mu.Unlock()

	r.notify(subs, Event{Type: EventPlatformUpdated, Platform: id})
	return nil
}

//
// ---------- Circuit nodes ----------
//

// AddNode registers a connectable circuit node.
func (r *Registry) AddNode(id string) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty node ID", ErrBadInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; exists {
		return nil, fmt.Errorf("%w: %q", ErrNodeExists, id)
	}
	n := &Node{
		id:          id,
		valid:       true,
		connectable: true,
		networks:    make(map[slotKey]*Network),
	}
	r.nodes[id] = n
	return n, nil
}

// RemoveNode deletes a node and invalidates outstanding references.
func (r *Registry) RemoveNode(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	n.valid = false
	delete(r.nodes, id)
	return nil
}

// Node returns a node as a signalbus borrowed reference, or nil.
func (r *Registry) Node(id string) signalbus.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	if !ok {
		return nil
	}
	return n
}

// NodeHandle returns the concrete node for mutation, or nil.
func (r *Registry) NodeHandle(id string) *Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodes[id]
}

// AttachNetwork wires a network onto a node's channel and slot, creating it
// if needed, and notifies subscribers.
func (r *Registry) AttachNetwork(nodeID string, channel model.WireChannel, slot model.ConnectorSlot) (*Network, error) {
	r.mu.Lock()
	n, ok := r.nodes[nodeID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	key := slotKey{channel: channel, slot: slot}
	net, ok := n.networks[key]
	if !ok {
		net = &Network{signals: make(map[model.SignalID]int)}
		n.networks[key] = net
	}
	subs := r.snapshotSubs()
	r.mu.Unlock()

	r.notify(subs, Event{Type: EventNetworkAttached, NodeID: nodeID, Channel: channel, Slot: slot})
	return net, nil
}

// DetachNetwork removes the network from a node's channel and slot and
// notifies subscribers.
func (r *Registry) DetachNetwork(nodeID string, channel model.WireChannel, slot model.ConnectorSlot) error {
	r.mu.Lock()
	n, ok := r.nodes[nodeID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	key := slotKey{channel: channel, slot: slot}
	if _, ok := n.networks[key]; !ok {
		r.mu.Unlock()
		return nil
	}
	delete(n.networks, key)
	subs := r.snapshotSubs()
	r.mu.Unlock()

	r.notify(subs, Event{Type: EventNetworkDetached, NodeID: nodeID, Channel: channel, Slot: slot})
	return nil
}

//
// ---------- Events & stats ----------
//

// Subscribe registers a callback for registry events. It returns an
// unsubscribe function. Subscribers are keyed by identity, so earlier
// unsubscribes never affect which callbacks remain registered.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSubID++
	id := r.nextSubID
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// snapshotSubs copies the current subscriber set. Caller holds r.mu.
func (r *Registry) snapshotSubs() []func(Event) {
	subs := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	return subs
}

// Stats returns current object counts for metrics gauges.
func (r *Registry) Stats() (platforms, surfaces, nodes int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.platforms), len(r.surfaces), len(r.nodes)
}

// notify runs outside the registry lock to avoid deadlocks.
func (r *Registry) notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
