package scenario

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/platform-relay/mobility"
	"github.com/signalsfoundry/platform-relay/model"
	"github.com/signalsfoundry/platform-relay/registry"
	"github.com/signalsfoundry/platform-relay/relay"
	"github.com/signalsfoundry/platform-relay/signalbus"
)

const sampleJSON = `{
  "name": "two-node relay",
  "surfaces": [
    {"index": 1, "name": "homeworld"},
    {"index": 2, "platform": 7}
  ],
  "platforms": [
    {"id": 7, "name": "hauler", "location": {"name": "homeworld orbit", "surface": 1}}
  ],
  "nodes": [
    {
      "id": "ground-relay",
      "networks": [
        {"channel": "red", "slot": "input", "signals": [{"kind": "item", "name": "iron-plate", "count": 12}]},
        {"channel": "green", "slot": "input", "signals": [{"kind": "item", "name": "iron-plate", "count": 3}]}
      ]
    },
    {"id": "platform-relay"}
  ],
  "links": [
    {"id": "homeworld-hauler", "platform": 7, "anchor": 1, "local_node": "ground-relay", "remote_node": "platform-relay"}
  ]
}`

func TestLoadPopulatesRegistryAndController(t *testing.T) {
	reg := registry.NewRegistry()
	engine := signalbus.NewEngine()
	ctrl := relay.NewController(mobility.NewEvaluator(reg), engine, reg)

	summary, err := Load(reg, ctrl, strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if summary.Name != "two-node relay" {
		t.Fatalf("summary.Name = %q, want %q", summary.Name, "two-node relay")
	}
	if len(summary.PlatformIDs) != 1 || len(summary.SurfaceIDs) != 2 ||
		len(summary.NodeIDs) != 2 || len(summary.LinkIDs) != 1 {
		t.Fatalf("summary = %+v, want 1 platform, 2 surfaces, 2 nodes, 1 link", summary)
	}

	eval := mobility.NewEvaluator(reg)
	if !eval.IsAnchoredAt(7, 1) {
		t.Fatal("platform 7 should load anchored at surface 1")
	}

	iron := model.SignalID{Kind: "item", Name: "iron-plate"}
	merged := engine.ReadMerged(reg.Node("ground-relay"))
	if merged[iron] != 15 {
		t.Fatalf("merged iron = %d, want 15", merged[iron])
	}

	ctrl.UpdateLinks(context.Background())
	link, ok := ctrl.Link("homeworld-hauler")
	if !ok || !link.IsUp {
		t.Fatalf("link = %+v, want loaded and up", link)
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing name":      `{"surfaces": []}`,
		"bad channel":       `{"name": "x", "nodes": [{"id": "n", "networks": [{"channel": "blue"}]}]}`,
		"link without ends": `{"name": "x", "links": [{"id": "l", "platform": 1, "anchor": 1}]}`,
		"unknown field":     `{"name": "x", "wormholes": []}`,
		"not json":          `{]`,
	}
	for name, doc := range cases {
		reg := registry.NewRegistry()
		if _, err := Load(reg, nil, strings.NewReader(doc)); err == nil {
			t.Errorf("%s: Load succeeded, want error", name)
		}
	}
}

func TestLoadReportsDuplicateIDs(t *testing.T) {
	reg := registry.NewRegistry()
	doc := `{"name": "dupes", "nodes": [{"id": "n"}, {"id": "n"}]}`
	if _, err := Load(reg, nil, strings.NewReader(doc)); err == nil {
		t.Fatal("Load succeeded with duplicate node IDs, want error")
	}
}

func TestLoadFileYAML(t *testing.T) {
	const sampleYAML = `
name: yaml relay
surfaces:
  - index: 1
    name: homeworld
platforms:
  - id: 3
    name: shuttle
    speed: 0.5
    location:
      name: homeworld orbit
      surface: 1
nodes:
  - id: ground-relay
    connectable: false
`
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write temp scenario: %v", err)
	}

	reg := registry.NewRegistry()
	summary, err := LoadFile(reg, nil, path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if summary.Name != "yaml relay" {
		t.Fatalf("summary.Name = %q, want %q", summary.Name, "yaml relay")
	}

	eval := mobility.NewEvaluator(reg)
	p := reg.Platform(3)
	if p == nil {
		t.Fatal("platform 3 not loaded")
	}
	if status := mobility.Classify(p); status.State != mobility.StateMoving {
		t.Fatalf("platform 3 state = %v, want moving", status.State)
	}
	if eval.IsAnchoredAt(3, 1) {
		t.Fatal("moving platform must not report anchored")
	}

	if node := reg.Node("ground-relay"); node == nil || node.Connectable() {
		t.Fatal("node should load with connectable disabled")
	}
}

func TestValidateFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	if err := os.WriteFile(path, []byte("surfaces: [index: }"), 0o600); err != nil {
		t.Fatalf("write temp scenario: %v", err)
	}
	if err := ValidateFile(path); err == nil {
		t.Fatal("ValidateFile succeeded on broken YAML, want error")
	}
}

func TestValidateAcceptsSample(t *testing.T) {
	if err := Validate([]byte(sampleJSON)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
