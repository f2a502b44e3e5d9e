package domain

import "time"

type NodeKind string

const (
	NodeUser   NodeKind = "User"
	NodeAsset  NodeKind = "Asset"
	NodeSector NodeKind = "Sector"
	NodeEvent  NodeKind = "Event"
)

type EdgeKind string

const (
	EdgeHolds     EdgeKind = "Holds"
	EdgeBelongsTo EdgeKind = "BelongsTo"
	EdgeImpacts   EdgeKind = "Impacts"
	EdgeFollows   EdgeKind = "Follows"
)

// NodeRef is the natural key of a graph node within a tenant.
type NodeRef struct {
	Kind NodeKind
	Key  string
}

type GraphNode struct {
	TenantID  TenantID
	Ref       NodeRef
	Label     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GraphEdge struct {
	TenantID TenantID
	Kind     EdgeKind
	From     NodeRef
	To       NodeRef
	// Weight carries edge confidence, used as an inclusion threshold
	// during targeting.
	Weight    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}
