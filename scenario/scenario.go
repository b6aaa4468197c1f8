// Package scenario loads relay scenarios from JSON or YAML files into a
// registry and, optionally, a relay controller.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/platform-relay/model"
	"github.com/signalsfoundry/platform-relay/registry"
	"github.com/signalsfoundry/platform-relay/relay"
)

//go:embed schema.json
var schemaDoc string

var compiledSchema = jsonschema.MustCompileString("scenario.schema.json", schemaDoc)

// Summary is a small summary of what was loaded. It is mainly useful for
// logging or debugging from main().
type Summary struct {
	Name        string
	SurfaceIDs  []model.SurfaceIndex
	PlatformIDs []model.PlatformID
	NodeIDs     []string
	LinkIDs     []string
}

// internal JSON shapes, kept unexported so the file format can evolve.
type scenarioJSON struct {
	Name      string         `json:"name"`
	Surfaces  []surfaceJSON  `json:"surfaces"`
	Platforms []platformJSON `json:"platforms"`
	Nodes     []nodeJSON     `json:"nodes"`
	Links     []linkJSON     `json:"links"`
}

type surfaceJSON struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Platform *int64 `json:"platform"` // when set, this is a platform's own surface
}

type platformJSON struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Speed    float64       `json:"speed"`
	Location *locationJSON `json:"location"`
}

type locationJSON struct {
	Name    string `json:"name"`
	Surface *int   `json:"surface"` // nil means deep space
}

type nodeJSON struct {
	ID          string        `json:"id"`
	Connectable *bool         `json:"connectable"` // optional; defaults to true
	Networks    []networkJSON `json:"networks"`
}

type networkJSON struct {
	Channel string       `json:"channel"` // "red" | "green"
	Slot    string       `json:"slot"`
	Signals []signalJSON `json:"signals"`
}

type signalJSON struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type linkJSON struct {
	ID         string `json:"id"`
	Platform   int64  `json:"platform"`
	Anchor     int    `json:"anchor"`
	LocalNode  string `json:"local_node"`
	RemoteNode string `json:"remote_node"`
	Impaired   bool   `json:"impaired"`
}

// LoadFile loads a scenario from disk. Files ending in .yaml or .yml are
// converted to JSON before validation so both formats share one schema.
func LoadFile(reg *registry.Registry, ctrl *relay.Controller, path string) (*Summary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("scenario: %s: %w", path, err)
		}
	}
	return Load(reg, ctrl, bytes.NewReader(raw))
}

// Load reads a JSON scenario from r, validates it against the embedded
// schema, populates the registry, and configures the controller's link
// table. The controller may be nil, in which case links are skipped.
//
// Loading fails on schema or structural errors. Duplicate IDs surface the
// same errors the direct registry Add* calls return.
func Load(reg *registry.Registry, ctrl *relay.Controller, r io.Reader) (*Summary, error) {
	if reg == nil {
		return nil, fmt.Errorf("scenario: registry is nil")
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("scenario: read: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var payload scenarioJSON
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}

	summary := &Summary{Name: payload.Name}

	// 1) Platforms, so platform surfaces can reference them.
	for _, jsP := range payload.Platforms {
		id := model.PlatformID(jsP.ID)
		if _, err := reg.AddPlatform(id, jsP.Name); err != nil {
			return nil, fmt.Errorf("scenario: platform %d: %w", jsP.ID, err)
		}
		summary.PlatformIDs = append(summary.PlatformIDs, id)
	}

	// 2) Surfaces.
	for _, jsS := range payload.Surfaces {
		index := model.SurfaceIndex(jsS.Index)
		if jsS.Platform != nil {
			if _, err := reg.AddPlatformSurface(index, model.PlatformID(*jsS.Platform)); err != nil {
				return nil, fmt.Errorf("scenario: surface %d: %w", jsS.Index, err)
			}
		} else {
			if _, err := reg.AddSurface(index, jsS.Name); err != nil {
				return nil, fmt.Errorf("scenario: surface %d: %w", jsS.Index, err)
			}
		}
		summary.SurfaceIDs = append(summary.SurfaceIDs, index)
	}

	// 3) Platform locations and speed, after surfaces exist.
	for _, jsP := range payload.Platforms {
		id := model.PlatformID(jsP.ID)
		if jsP.Location != nil {
			if jsP.Location.Surface != nil {
				err = reg.SetPlatformOrbit(id, jsP.Location.Name, model.SurfaceIndex(*jsP.Location.Surface))
			} else {
				err = reg.SetPlatformDeepSpace(id, jsP.Location.Name)
			}
			if err != nil {
				return nil, fmt.Errorf("scenario: platform %d location: %w", jsP.ID, err)
			}
		}
		if jsP.Speed != 0 {
			if err := reg.SetPlatformSpeed(id, jsP.Speed); err != nil {
				return nil, fmt.Errorf("scenario: platform %d speed: %w", jsP.ID, err)
			}
		}
	}

	// 4) Nodes and their networks.
	for _, jsN := range payload.Nodes {
		node, err := reg.AddNode(jsN.ID)
		if err != nil {
			return nil, fmt.Errorf("scenario: node %q: %w", jsN.ID, err)
		}
		if jsN.Connectable != nil {
			node.SetConnectable(*jsN.Connectable)
		}
		for _, jsNet := range jsN.Networks {
			net, err := reg.AttachNetwork(jsN.ID, channelFromString(jsNet.Channel), slotFromString(jsNet.Slot))
			if err != nil {
				return nil, fmt.Errorf("scenario: node %q network: %w", jsN.ID, err)
			}
			for _, jsSig := range jsNet.Signals {
				net.SetSignal(model.SignalID{Kind: jsSig.Kind, Name: jsSig.Name}, jsSig.Count)
			}
		}
		summary.NodeIDs = append(summary.NodeIDs, jsN.ID)
	}

	// 5) Links.
	if ctrl != nil {
		for _, jsL := range payload.Links {
			link := &relay.Link{
				ID:           jsL.ID,
				Platform:     model.PlatformID(jsL.Platform),
				Anchor:       model.SurfaceIndex(jsL.Anchor),
				LocalNodeID:  jsL.LocalNode,
				RemoteNodeID: jsL.RemoteNode,
			}
			if err := ctrl.AddLink(link); err != nil {
				return nil, fmt.Errorf("scenario: link %q: %w", jsL.ID, err)
			}
			if jsL.Impaired {
				if err := ctrl.SetLinkImpaired(jsL.ID, true); err != nil {
					return nil, fmt.Errorf("scenario: link %q: %w", jsL.ID, err)
				}
			}
			summary.LinkIDs = append(summary.LinkIDs, jsL.ID)
		}
	}

	return summary, nil
}

// Validate checks raw JSON scenario bytes against the embedded schema
// without applying anything.
func Validate(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("scenario: decode: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("scenario: schema: %w", err)
	}
	return nil
}

// ValidateFile checks a scenario file, converting YAML to JSON first.
func ValidateFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scenario: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = yamlToJSON(raw)
		if err != nil {
			return fmt.Errorf("scenario: %s: %w", path, err)
		}
	}
	return Validate(raw)
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("yaml decode: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("yaml convert: %w", err)
	}
	return out, nil
}

// channelFromString maps the JSON "channel" string to wire channels. Kept
// tolerant: the schema already enumerates valid values, so unknown or empty
// input defaults to the red channel.
func channelFromString(s string) model.WireChannel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green":
		return model.ChannelGreen
	default:
		return model.ChannelRed
	}
}

func slotFromString(s string) model.ConnectorSlot {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "output":
		return model.SlotOutput
	case "constant":
		return model.SlotConstant
	case "container":
		return model.SlotContainer
	case "inserter":
		return model.SlotInserter
	default:
		return model.SlotInput
	}
}
