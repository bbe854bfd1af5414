package overpass

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type rawResponse struct {
	Generator string       `json:"generator"`
	Elements  []rawElement `json:"elements"`
}

type rawElement struct {
	Type string `json:"type"`

	// meta
	ID        int64             `json:"id"`
	Tags      map[string]string `json:"tags"`
	User      string            `json:"user"`
	UID       int64             `json:"uid"`
	Version   int               `json:"version"`
	Changeset int64             `json:"changeset"`
	Timestamp string            `json:"timestamp"`

	// node
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// way
	Nodes []int64 `json:"nodes"`
}

func (el rawElement) meta() (Meta, error) {
	m := Meta{
		ID:        el.ID,
		Tags:      el.Tags,
		User:      el.User,
		UID:       el.UID,
		Version:   el.Version,
		Changeset: el.Changeset,
	}
	if el.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, el.Timestamp)
		if err != nil {
			return Meta{}, fmt.Errorf("%s %d: timestamp: %w", el.Type, el.ID, err)
		}
		m.Timestamp = ts
	}
	return m, nil
}

func ParseJSON(v io.Reader) (*Response, error) {
	var resp rawResponse
	err := json.NewDecoder(v).Decode(&resp)
	if err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	response := &Response{
		Generator: resp.Generator,
		Count:     len(resp.Elements),
		Nodes:     make(map[int64]*Node),
		Ways:      make(map[int64]*Way),
	}

	var ways []*Way
	for _, el := range resp.Elements {
		if el.Type != "node" && el.Type != "way" {
			continue
		}
		meta, err := el.meta()
		if err != nil {
			return nil, err
		}

		switch el.Type {
		case "node":
			node := &Node{meta: meta, Lat: el.Lat, Lon: el.Lon}
			response.Nodes[el.ID] = node
			response.Elements = append(response.Elements, node)
		case "way":
			way := &Way{meta: meta, NodeIDs: el.Nodes}
			response.Ways[el.ID] = way
			response.Elements = append(response.Elements, way)
			ways = append(ways, way)
		}
	}

	// `( ._; >; );` prints ways before their nodes, so resolve once all are known.
	for _, way := range ways {
		way.Nodes = make([]*Node, len(way.NodeIDs))
		for i, nodeID := range way.NodeIDs {
			way.Nodes[i] = response.Nodes[nodeID]
		}
	}

	return response, nil
}
