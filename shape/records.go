// Package shape turns OSM elements into flat relational records.
package shape

import "time"

// Column order of the downstream tables.
var (
	NodeColumns    = []string{"id", "lat", "lon", "user", "uid", "version", "changeset", "timestamp"}
	TagColumns     = []string{"id", "key", "value", "type"}
	WayColumns     = []string{"id", "user", "uid", "version", "changeset", "timestamp"}
	WayNodeColumns = []string{"id", "node_id", "position"}
	ChangeColumns  = []string{"original", "new"}
)

type EntityKind string

const (
	EntityNode EntityKind = "node"
	EntityWay  EntityKind = "way"
)

type NodeRecord struct {
	ID        int64     `json:"id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	User      string    `json:"user"`
	UID       int64     `json:"uid"`
	Version   string    `json:"version"`
	Changeset int64     `json:"changeset"`
	Timestamp time.Time `json:"timestamp"`
}

type WayRecord struct {
	ID        int64     `json:"id"`
	User      string    `json:"user"`
	UID       int64     `json:"uid"`
	Version   string    `json:"version"`
	Changeset int64     `json:"changeset"`
	Timestamp time.Time `json:"timestamp"`
}

// TagRecord is one tag of a node or way. Value is nil when the tag's
// normalizer did not recognize the raw value.
type TagRecord struct {
	ID    int64   `json:"id"`
	Key   string  `json:"key"`
	Value *string `json:"value"`
	Type  string  `json:"type"`
}

type WayNodeRecord struct {
	ID       int64 `json:"id"`
	NodeID   int64 `json:"node_id"`
	Position int   `json:"position"`
}

// Bundle is everything produced from one element. Exactly one of Node and Way
// is set, matching Kind.
type Bundle struct {
	Kind     EntityKind      `json:"kind"`
	Node     *NodeRecord     `json:"node,omitempty"`
	Way      *WayRecord      `json:"way,omitempty"`
	Tags     []TagRecord     `json:"tags"`
	WayNodes []WayNodeRecord `json:"way_nodes,omitempty"`
}

// EntityID is the id of the node or way.
func (b *Bundle) EntityID() int64 {
	if b.Node != nil {
		return b.Node.ID
	}
	if b.Way != nil {
		return b.Way.ID
	}
	return 0
}
