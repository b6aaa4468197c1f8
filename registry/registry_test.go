package registry

import (
	"testing"

	"github.com/signalsfoundry/platform-relay/mobility"
	"github.com/signalsfoundry/platform-relay/model"
	"github.com/signalsfoundry/platform-relay/signalbus"
)

func TestAddAndLookupPlatform(t *testing.T) {
	r := NewRegistry()

	p, err := r.AddPlatform(1, "hauler")
	if err != nil {
		t.Fatalf("AddPlatform: %v", err)
	}
	if _, err := r.AddPlatform(1, "dup"); err == nil {
		t.Fatal("expected duplicate AddPlatform error")
	}

	got := r.Platform(1)
	if got == nil || got.ID() != p.ID() {
		t.Fatalf("Platform(1) = %v, want the added platform", got)
	}
	if r.Platform(2) != nil {
		t.Fatal("Platform(2) should be nil for unknown identity")
	}
	if len(r.Platforms()) != 1 {
		t.Fatalf("Platforms() has %d entries, want 1", len(r.Platforms()))
	}
}

func TestRemovePlatformInvalidatesBorrowedReferences(t *testing.T) {
	r := NewRegistry()
	p, err := r.AddPlatform(1, "hauler")
	if err != nil {
		t.Fatalf("AddPlatform: %v", err)
	}
	s, err := r.AddPlatformSurface(10, 1)
	if err != nil {
		t.Fatalf("AddPlatformSurface: %v", err)
	}

	if err := r.RemovePlatform(1); err != nil {
		t.Fatalf("RemovePlatform: %v", err)
	}
	if p.Valid() {
		t.Fatal("removed platform still reports Valid() = true")
	}
	if s.Valid() {
		t.Fatal("removed platform's surface still reports Valid() = true")
	}
	if r.Platform(1) != nil {
		t.Fatal("removed platform still resolvable by identity")
	}
	if err := r.RemovePlatform(1); err == nil {
		t.Fatal("expected error removing a platform twice")
	}
}

func TestPlatformLocationTransitions(t *testing.T) {
	r := NewRegistry()
	if _, err := r.AddPlatform(1, "hauler"); err != nil {
		t.Fatalf("AddPlatform: %v", err)
	}
	if _, err := r.AddSurface(5, "homeworld"); err != nil {
		t.Fatalf("AddSurface: %v", err)
	}

	eval := mobility.NewEvaluator(r)

	// Fresh platform is in transit.
	if got := mobility.Classify(r.Platform(1)).State; got != mobility.StateInTransit {
		t.Fatalf("fresh platform state = %v, want in-transit", got)
	}

	if err := r.SetPlatformOrbit(1, "homeworld orbit", 5); err != nil {
		t.Fatalf("SetPlatformOrbit: %v", err)
	}
	if !eval.IsAnchoredAt(1, 5) {
		t.Fatal("IsAnchoredAt = false after parking at orbit")
	}

	if err := r.SetPlatformSpeed(1, 0.7); err != nil {
		t.Fatalf("SetPlatformSpeed: %v", err)
	}
	if eval.IsAnchoredAt(1, 5) {
		t.Fatal("IsAnchoredAt = true while moving")
	}

	if err := r.SetPlatformSpeed(1, 0); err != nil {
		t.Fatalf("SetPlatformSpeed: %v", err)
	}
	if err := r.SetPlatformDeepSpace(1, "open space"); err != nil {
		t.Fatalf("SetPlatformDeepSpace: %v", err)
	}
	if got := mobility.Classify(r.Platform(1)).State; got != mobility.StateDeepSpace {
		t.Fatalf("state = %v, want deep-space", got)
	}

	if err := r.ClearPlatformLocation(1); err != nil {
		t.Fatalf("ClearPlatformLocation: %v", err)
	}
	if got := mobility.Classify(r.Platform(1)).State; got != mobility.StateInTransit {
		t.Fatalf("state = %v, want in-transit", got)
	}

	if err := r.SetPlatformOrbit(1, "nowhere orbit", 99); err == nil {
		t.Fatal("expected error parking over an unknown surface")
	}
}

func TestNodesAndNetworks(t *testing.T) {
	r := NewRegistry()
	engine := signalbus.NewEngine()

	n, err := r.AddNode("combinator-1")
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := r.AddNode("combinator-1"); err == nil {
		t.Fatal("expected duplicate AddNode error")
	}
	if _, err := r.AddNode(""); err == nil {
		t.Fatal("expected error for empty node ID")
	}

	if engine.HasAnyConnection(r.Node("combinator-1")) {
		t.Fatal("fresh node reports a connection")
	}

	net, err := r.AttachNetwork("combinator-1", model.ChannelRed, model.SlotInput)
	if err != nil {
		t.Fatalf("AttachNetwork: %v", err)
	}
	net.SetSignal(model.SignalID{Kind: "item", Name: "iron-plate"}, 12)

	signals, ok := engine.ReadChannel(n, model.ChannelRed, model.SlotInput)
	if !ok || signals[model.SignalID{Kind: "item", Name: "iron-plate"}] != 12 {
		t.Fatalf("ReadChannel = (%v, %v), want iron-plate 12", signals, ok)
	}

	if err := r.DetachNetwork("combinator-1", model.ChannelRed, model.SlotInput); err != nil {
		t.Fatalf("DetachNetwork: %v", err)
	}
	if _, ok := engine.ReadChannel(n, model.ChannelRed, model.SlotInput); ok {
		t.Fatal("ReadChannel still sees a network after detach")
	}

	if err := r.RemoveNode("combinator-1"); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if n.Valid() {
		t.Fatal("removed node still reports Valid() = true")
	}
	if r.Node("combinator-1") != nil {
		t.Fatal("removed node still resolvable")
	}
}

func TestSubscribeReceivesNetworkEvents(t *testing.T) {
	r := NewRegistry()
	if _, err := r.AddNode("lamp-1"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	var events []Event
	unsubscribe := r.Subscribe(func(ev Event) { events = append(events, ev) })

	if _, err := r.AttachNetwork("lamp-1", model.ChannelGreen, model.SlotInput); err != nil {
		t.Fatalf("AttachNetwork: %v", err)
	}
	if err := r.DetachNetwork("lamp-1", model.ChannelGreen, model.SlotInput); err != nil {
		t.Fatalf("DetachNetwork: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventNetworkAttached || events[1].Type != EventNetworkDetached {
		t.Fatalf("event types = %v, %v; want attach then detach", events[0].Type, events[1].Type)
	}
	if events[0].NodeID != "lamp-1" || events[0].Channel != model.ChannelGreen {
		t.Fatalf("attach event = %+v, want lamp-1 green", events[0])
	}

	unsubscribe()
	if _, err := r.AttachNetwork("lamp-1", model.ChannelRed, model.SlotInput); err != nil {
		t.Fatalf("AttachNetwork: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("received event after unsubscribe, got %d events", len(events))
	}
}

func TestUnsubscribeLeavesOtherSubscribersIntact(t *testing.T) {
	r := NewRegistry()
	if _, err := r.AddNode("lamp-1"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	var gotA, gotB, gotC int
	unsubA := r.Subscribe(func(Event) { gotA++ })
	unsubB := r.Subscribe(func(Event) { gotB++ })
	r.Subscribe(func(Event) { gotC++ })

	// Unsubscribing out of registration order must not shift which
	// callbacks the remaining unsubscribe closures remove.
	unsubA()
	unsubB()

	if _, err := r.AttachNetwork("lamp-1", model.ChannelRed, model.SlotInput); err != nil {
		t.Fatalf("AttachNetwork: %v", err)
	}

	if gotA != 0 || gotB != 0 {
		t.Fatalf("unsubscribed callbacks fired: gotA = %d, gotB = %d, want 0", gotA, gotB)
	}
	if gotC != 1 {
		t.Fatalf("remaining subscriber got %d events, want 1", gotC)
	}
}

func TestEntityOnPlatformSurface(t *testing.T) {
	r := NewRegistry()
	if _, err := r.AddPlatform(1, "hauler"); err != nil {
		t.Fatalf("AddPlatform: %v", err)
	}
	deck, err := r.AddPlatformSurface(30, 1)
	if err != nil {
		t.Fatalf("AddPlatformSurface: %v", err)
	}
	ground, err := r.AddSurface(31, "homeworld")
	if err != nil {
		t.Fatalf("AddSurface: %v", err)
	}

	eval := mobility.NewEvaluator(r)
	aboardA := EntityOn(deck)
	aboardB := EntityOn(deck)
	grounded := EntityOn(ground)

	if !eval.SamePlatform(aboardA, aboardB) {
		t.Fatal("SamePlatform = false for two entities on one platform deck")
	}
	if eval.SamePlatform(aboardA, grounded) {
		t.Fatal("SamePlatform = true for a deck entity and a ground entity")
	}
	if !eval.IsMobilitySurface(deck) {
		t.Fatal("IsMobilitySurface(deck) = false, want true")
	}
	if eval.IsMobilitySurface(ground) {
		t.Fatal("IsMobilitySurface(ground) = true, want false")
	}
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	if _, err := r.AddPlatform(1, "a"); err != nil {
		t.Fatalf("AddPlatform: %v", err)
	}
	if _, err := r.AddSurface(1, "s"); err != nil {
		t.Fatalf("AddSurface: %v", err)
	}
	if _, err := r.AddNode("n"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	platforms, surfaces, nodes := r.Stats()
	if platforms != 1 || surfaces != 1 || nodes != 1 {
		t.Fatalf("Stats = (%d, %d, %d), want (1, 1, 1)", platforms, surfaces, nodes)
	}
}
