// Package relay gates long-distance signal relay links on platform
// anchoring and pumps merged circuit signals across links that are up.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/platform-relay/internal/logging"
	"github.com/signalsfoundry/platform-relay/mobility"
	"github.com/signalsfoundry/platform-relay/model"
	"github.com/signalsfoundry/platform-relay/signalbus"
)

var (
	ErrLinkExists   = errors.New("link already exists")
	ErrLinkNotFound = errors.New("link not found")
	ErrLinkBadInput = errors.New("invalid link")
)

// NodeResolver resolves a circuit node by ID on every access. Resolution
// happens per tick because node references go stale when the host destroys
// the underlying object.
type NodeResolver interface {
	Node(id string) signalbus.Node
}

// LinkEventType distinguishes gate transitions.
type LinkEventType int

const (
	LinkEventUp LinkEventType = iota
	LinkEventDown
)

// LinkEvent is emitted on every gate transition.
type LinkEvent struct {
	Type LinkEventType
	Link Link // copy at transition time
}

// Recorder receives controller metrics. The observability collector
// implements it; nil is fine.
type Recorder interface {
	RecordGateCheck(eligible bool)
	RecordSignalsRelayed(count int)
	SetLinkCounts(total, up int)
	ObserveUpdateDuration(seconds float64)
}

// Controller owns the relay link table. Each UpdateLinks pass re-runs the
// anchoring gate for every link and pumps merged signals across the ones
// that are up.
type Controller struct {
	mu        sync.RWMutex
	links     map[string]*Link
	subs      map[uint64]func(LinkEvent)
	nextSubID uint64

	eval    *mobility.Evaluator
	engine  *signalbus.Engine
	nodes   NodeResolver
	log     logging.Logger
	metrics Recorder
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) ControllerOption {
	return func(c *Controller) { c.metrics = rec }
}

// NewController constructs a Controller over the given evaluator, engine,
// and node resolver.
func NewController(eval *mobility.Evaluator, engine *signalbus.Engine, nodes NodeResolver, opts ...ControllerOption) *Controller {
	c := &Controller{
		links:  make(map[string]*Link),
		subs:   make(map[uint64]func(LinkEvent)),
		eval:   eval,
		engine: engine,
		nodes:  nodes,
		log:    logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Noop()
	}
	return c
}

// AddLink inserts a new relay link in the Unknown state.
func (c *Controller) AddLink(link *Link) error {
	if link == nil || link.ID == "" {
		return fmt.Errorf("%w", ErrLinkBadInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.links[link.ID]; exists {
		return fmt.Errorf("%w: %q", ErrLinkExists, link.ID)
	}
	stored := *link
	stored.Status = LinkStatusUnknown
	stored.IsUp = false
	c.links[link.ID] = &stored
	return nil
}

// RemoveLink deletes a link by ID.
func (c *Controller) RemoveLink(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.links[id]; !exists {
		return fmt.Errorf("%w: %q", ErrLinkNotFound, id)
	}
	delete(c.links, id)
	return nil
}

// Link returns a copy of one link, or false if missing.
func (c *Controller) Link(id string) (Link, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	link, ok := c.links[id]
	if !ok {
		return Link{}, false
	}
	return *link, true
}

// Links returns copies of every link, sorted by ID for stable output.
func (c *Controller) Links() []Link {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Link, 0, len(c.links))
	for _, link := range c.links {
		out = append(out, *link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetLinkImpaired marks a link administratively impaired or not. An
// impaired link stays down no matter what the anchoring gate says.
func (c *Controller) SetLinkImpaired(id string, impaired bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	link, ok := c.links[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrLinkNotFound, id)
	}
	link.IsImpaired = impaired
	return nil
}

// Subscribe registers a callback for gate transitions. It returns an
// unsubscribe function. Subscribers are keyed by identity, so earlier
// unsubscribes never affect which callbacks remain registered.
func (c *Controller) Subscribe(fn func(LinkEvent)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// UpdateLinks re-evaluates every link's eligibility gate and pumps merged
// signals across links that are up. It is called once per simulation tick.
func (c *Controller) UpdateLinks(ctx context.Context) {
	start := time.Now()
	ctx, span := otel.Tracer("relay").Start(ctx, "Controller.UpdateLinks")
	defer span.End()

	var events []LinkEvent

	c.mu.Lock()
	subs := make([]func(LinkEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	total := len(c.links)
	up := 0
	for _, link := range c.links {
		wasUp := link.IsUp
		c.evaluateLink(ctx, link)
		if link.IsUp {
			up++
		}
		if link.IsUp != wasUp {
			ev := LinkEvent{Type: LinkEventDown, Link: *link}
			if link.IsUp {
				ev.Type = LinkEventUp
			}
			events = append(events, ev)
		}
	}
	c.mu.Unlock()

	span.SetAttributes(
		attribute.Int("relay.links", total),
		attribute.Int("relay.links_up", up),
	)
	if c.metrics != nil {
		c.metrics.SetLinkCounts(total, up)
		c.metrics.ObserveUpdateDuration(time.Since(start).Seconds())
	}

	// Notify outside the lock to avoid deadlocks with subscribers that
	// call back into the controller.
	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
		c.log.Info(ctx, "relay link transition",
			logging.String("link", ev.Link.ID),
			logging.Bool("up", ev.Link.IsUp),
			logging.String("status", ev.Link.Status.String()),
		)
	}
}

// evaluateLink runs the gate for one link and, when up, pumps signals.
// Caller holds c.mu.
func (c *Controller) evaluateLink(ctx context.Context, link *Link) {
	if link.IsImpaired {
		link.Status = LinkStatusImpaired
		link.IsUp = false
		link.SignalsRelayed = 0
		return
	}

	eligible := c.eval != nil && c.eval.IsAnchoredAt(link.Platform, link.Anchor)
	if c.metrics != nil {
		c.metrics.RecordGateCheck(eligible)
	}
	if !eligible {
		link.Status = LinkStatusWaiting
		link.IsUp = false
		link.SignalsRelayed = 0
		return
	}

	link.Status = LinkStatusEligible
	link.IsUp = true
	link.SignalsRelayed = c.pump(ctx, link)
}

// pump reads the merged signals from the link's local node and offers them
// to the remote node. The write reports success without propagating; the
// host's own node behaviour carries accepted output signals.
func (c *Controller) pump(ctx context.Context, link *Link) int {
	if c.nodes == nil || c.engine == nil {
		return 0
	}
	local := c.nodes.Node(link.LocalNodeID)
	remote := c.nodes.Node(link.RemoteNodeID)

	payload := c.engine.ReadMerged(local)
	if !c.engine.WriteChannel(remote, model.ChannelRed, payload) {
		c.log.Debug(ctx, "relay write not accepted",
			logging.String("link", link.ID),
			logging.String("remote", link.RemoteNodeID),
		)
		return 0
	}
	if c.metrics != nil {
		c.metrics.RecordSignalsRelayed(len(payload))
	}
	return len(payload)
}
