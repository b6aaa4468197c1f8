package model

// WireChannel selects one of the two signal-carrying wire colours on a
// connectable node. The two channels never influence each other except
// through an explicit merge.
type WireChannel int

const (
	ChannelRed WireChannel = iota
	ChannelGreen
)

// WireChannels lists the closed set of channels, in merge order.
var WireChannels = [2]WireChannel{ChannelRed, ChannelGreen}

func (c WireChannel) String() string {
	switch c {
	case ChannelRed:
		return "red"
	case ChannelGreen:
		return "green"
	default:
		return "unknown"
	}
}

// ConnectorSlot identifies which circuit connector on a node a query is
// aimed at. Some node kinds expose their signals only on a non-default
// slot, so connection probes check every slot, not just SlotInput.
type ConnectorSlot int

const (
	SlotInput    ConnectorSlot = iota // primary input, the default slot
	SlotOutput                        // primary output
	SlotConstant                      // constant-source slot
	SlotContainer                     // container slot
	SlotInserter                      // mover/inserter slot
)

// DefaultSlot is the slot read operations use unless told otherwise.
const DefaultSlot = SlotInput

// ProbeSlots is the fixed slot set connection probes walk.
var ProbeSlots = [5]ConnectorSlot{SlotInput, SlotOutput, SlotConstant, SlotContainer, SlotInserter}

func (s ConnectorSlot) String() string {
	switch s {
	case SlotInput:
		return "input"
	case SlotOutput:
		return "output"
	case SlotConstant:
		return "constant"
	case SlotContainer:
		return "container"
	case SlotInserter:
		return "inserter"
	default:
		return "unknown"
	}
}

// SignalID is the compound identifier of one signal: a kind (item, fluid,
// virtual, ...) plus a name. Equality is structural, which makes SignalID
// usable directly as a map key; two IDs with equal kind and name always
// collide, which is what merge and count semantics depend on.
type SignalID struct {
	Kind string
	Name string
}

func (id SignalID) String() string {
	return id.Kind + "/" + id.Name
}

// Signals is a snapshot of the (identifier -> count) pairs observed on one
// channel. Counts may be zero or negative; the host decides what they mean.
type Signals map[SignalID]int

// Merge folds other into s, summing counts where the same identifier
// appears on both sides. Summation, not override, is the defining rule of
// a merged read.
func (s Signals) Merge(other Signals) {
	for id, count := range other {
		s[id] += count
	}
}

// Clone returns an independent copy so callers can hold a result across
// ticks without aliasing host state.
func (s Signals) Clone() Signals {
	out := make(Signals, len(s))
	for id, count := range s {
		out[id] = count
	}
	return out
}
