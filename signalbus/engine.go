// Package signalbus reads, merges and counts circuit signals on the wire
// networks attached to a connectable node.
//
// Every operation is a stateless query against borrowed references owned by
// the host simulation. References may be invalidated between calls, so each
// operation re-validates its inputs and degrades to its type's empty value
// (false, nil, empty map, zero) instead of returning an error. Transient
// invalidity is routine in the host, not exceptional.
package signalbus

import (
	"context"

	"github.com/signalsfoundry/platform-relay/internal/logging"
	"github.com/signalsfoundry/platform-relay/model"
)

// Network is a borrowed handle to one wire network. Signals returns the
// (identifier -> count) pairs currently on the wire; an empty map means the
// network is attached but silent.
type Network interface {
	Signals() map[model.SignalID]int
}

// Node is a borrowed reference to an object that may expose circuit
// connectors. Network returns nil when no network is attached to the given
// channel and slot, or when the node does not expose that slot at all.
type Node interface {
	Valid() bool
	Connectable() bool
	Network(channel model.WireChannel, slot model.ConnectorSlot) Network
}

// QueryRecorder receives a count per engine query, keyed by operation name.
// The observability collector implements it; a nil recorder is fine.
type QueryRecorder interface {
	RecordQuery(op string)
}

// Engine answers signal queries against connectable nodes. Options attach
// a logger and a metrics recorder; both default to no-ops.
type Engine struct {
	log     logging.Logger
	metrics QueryRecorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger for debug-level query tracing.
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRecorder attaches a query metrics recorder.
func WithRecorder(rec QueryRecorder) Option {
	return func(e *Engine) { e.metrics = rec }
}

// NewEngine constructs an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: logging.Noop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.Noop()
	}
	return e
}

// Validate reports whether node is present, currently valid, and exposes
// circuit connectors. Every other operation calls this first and
// short-circuits to its empty result on failure; a node without connector
// capability behaves identically to one with no connections.
func Validate(node Node) bool {
	return node != nil && node.Valid() && node.Connectable()
}

// ReadChannel returns a snapshot of the signals on one channel of the given
// connector slot. The second return value distinguishes "no network
// attached" (nil, false) from "network attached but silent" (empty map,
// true); callers rely on that distinction to tell disconnected from quiet.
func (e *Engine) ReadChannel(node Node, channel model.WireChannel, slot model.ConnectorSlot) (model.Signals, bool) {
	e.record("read_channel")
	if !Validate(node) {
		return nil, false
	}
	net := node.Network(channel, slot)
	if net == nil {
		return nil, false
	}
	out := make(model.Signals)
	for id, count := range net.Signals() {
		out[id] = count
	}
	return out, true
}

// ReadMerged reads both channels at the default slot and unions the
// results. Where an identifier appears on both channels the merged count is
// the arithmetic sum. Absent channels contribute nothing; the result is
// never nil, worst case an empty map.
func (e *Engine) ReadMerged(node Node) model.Signals {
	e.record("read_merged")
	merged := make(model.Signals)
	for _, channel := range model.WireChannels {
		signals, ok := e.ReadChannel(node, channel, model.DefaultSlot)
		if !ok {
			continue
		}
		merged.Merge(signals)
	}
	return merged
}

// WriteChannel validates the node and the shape of signals and reports
// whether the write was accepted. A nil map is rejected; an empty map is a
// valid, empty write.
//
// Accepted writes deliberately have no further effect: output signals
// propagate through each node's own behaviour in the host simulation, not
// through explicit writes. Callers should treat true as "the host will
// carry it", not "the engine transmitted it".
func (e *Engine) WriteChannel(node Node, channel model.WireChannel, signals model.Signals) bool {
	e.record("write_channel")
	if !Validate(node) {
		return false
	}
	if signals == nil {
		return false
	}
	e.logger().Debug(context.Background(), "write accepted",
		logging.String("channel", channel.String()),
		logging.Int("signals", len(signals)),
	)
	return true
}

// HasConnection reports whether any probe slot yields a network on the
// given channel. All five slots are checked because some node kinds expose
// signals only on a non-default slot.
func (e *Engine) HasConnection(node Node, channel model.WireChannel) bool {
	e.record("has_connection")
	if !Validate(node) {
		return false
	}
	for _, slot := range model.ProbeSlots {
		if node.Network(channel, slot) != nil {
			return true
		}
	}
	return false
}

// HasAnyConnection reports whether the node has a connection on either
// channel.
func (e *Engine) HasAnyConnection(node Node) bool {
	e.record("has_any_connection")
	return e.HasConnection(node, model.ChannelRed) || e.HasConnection(node, model.ChannelGreen)
}

// SignalCount returns the number of distinct signals on one channel at the
// default slot, or 0 when no network is attached.
func (e *Engine) SignalCount(node Node, channel model.WireChannel) int {
	e.record("signal_count")
	signals, ok := e.ReadChannel(node, channel, model.DefaultSlot)
	if !ok {
		return 0
	}
	return len(signals)
}

// ConnectedEntities returns the endpoints attached to a network.
//
// The network handle exposes no endpoint-enumeration primitive, so direct
// enumeration is not derivable here: a caller that needs true membership
// must track the host's attach/detach events itself (the registry package
// emits them). This returns an empty, non-nil slice for any non-nil
// network, and nil for a nil one.
func (e *Engine) ConnectedEntities(net Network) []Node {
	e.record("connected_entities")
	if net == nil {
		return nil
	}
	return []Node{}
}

func (e *Engine) record(op string) {
	if e.metrics != nil {
		e.metrics.RecordQuery(op)
	}
}

func (e *Engine) logger() logging.Logger {
	if e.log == nil {
		return logging.Noop()
	}
	return e.log
}
