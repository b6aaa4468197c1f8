package model

// PlatformID is the stable numeric identity of a mobile platform. It is
// unique and stable for the lifetime of the platform, and it is the only
// handle that survives reference invalidation, so it is what callers
// retain across ticks and what anchoring queries resolve from.
type PlatformID int64

// SurfaceIndex is the stable numeric identity of a ground surface. Anchor
// comparisons use the index, never reference identity.
type SurfaceIndex int
