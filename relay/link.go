package relay

import "github.com/signalsfoundry/platform-relay/model"

// LinkStatus is the control-plane state of a relay link, distinct from
// IsUp, which reflects the eligibility gate's latest verdict.
type LinkStatus int

const (
	LinkStatusUnknown  LinkStatus = iota // default / not yet evaluated
	LinkStatusEligible                   // platform anchored and at rest, link carrying
	LinkStatusWaiting                    // platform not settled at the anchor surface
	LinkStatusImpaired                   // administratively forced down, regardless of anchoring
)

func (s LinkStatus) String() string {
	switch s {
	case LinkStatusEligible:
		return "eligible"
	case LinkStatusWaiting:
		return "waiting"
	case LinkStatusImpaired:
		return "impaired"
	default:
		return "unknown"
	}
}

// Link is one long-distance relay between a ground-side circuit node and a
// node aboard a mobile platform. The link is considered up only while the
// platform is anchored at the target surface and at rest.
type Link struct {
	ID string `json:"ID"`

	// Platform and Anchor are the stable identities the eligibility gate
	// resolves each tick; references are never retained across ticks.
	Platform model.PlatformID   `json:"Platform"`
	Anchor   model.SurfaceIndex `json:"Anchor"`

	// LocalNodeID is the ground-side node signals are read from;
	// RemoteNodeID is the platform-side node they are offered to.
	LocalNodeID  string `json:"LocalNodeID"`
	RemoteNodeID string `json:"RemoteNodeID"`

	Status LinkStatus `json:"Status"`
	IsUp   bool       `json:"IsUp"`

	// IsImpaired forces the link down independent of anchoring.
	IsImpaired bool `json:"IsImpaired"`

	// SignalsRelayed is the distinct-signal count of the last pump over
	// this link while up. Diagnostic only.
	SignalsRelayed int `json:"SignalsRelayed"`
}
