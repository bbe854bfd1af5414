package overpass

import "time"

type Response struct {
	Generator string
	Count     int
	Nodes     map[int64]*Node
	Ways      map[int64]*Way
	// Elements in response order. Relations are skipped.
	Elements []Entity
}

// Entity is a Node or a Way.
type Entity interface {
	Meta() Meta
}

// Meta holds the fields returned by `out meta;`. They are zero for plain `out;`.
type Meta struct {
	ID        int64
	Tags      map[string]string
	User      string
	UID       int64
	Version   int
	Changeset int64
	Timestamp time.Time
}

type Node struct {
	meta Meta
	Lon  float64
	Lat  float64
}

func (n *Node) Meta() Meta { return n.meta }

type Way struct {
	meta    Meta
	NodeIDs []int64
	// Nodes resolves NodeIDs against the nodes in the same response. Entries are
	// nil for nodes the query did not return.
	Nodes []*Node
}

func (w *Way) Meta() Meta { return w.meta }
