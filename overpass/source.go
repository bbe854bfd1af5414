package overpass

import (
	"io"
	"sort"
	"strconv"
	"time"

	"osm-ingest/osmxml"
)

// Source yields the elements of a response in the shape of OSM XML elements,
// so the same shaper handles both inputs.
type Source struct {
	elements []Entity
	next     int
}

func NewSource(resp *Response) *Source {
	return &Source{elements: resp.Elements}
}

// Next returns io.EOF after the last element.
func (s *Source) Next() (*osmxml.Element, error) {
	if s.next >= len(s.elements) {
		return nil, io.EOF
	}
	e := s.elements[s.next]
	s.next++
	return ToElement(e), nil
}

// ToElement converts a node or way. Tags are emitted sorted by key.
func ToElement(e Entity) *osmxml.Element {
	m := e.Meta()
	el := &osmxml.Element{Attrs: metaAttrs(m)}

	switch v := e.(type) {
	case *Node:
		el.Name = "node"
		el.Attrs["lat"] = strconv.FormatFloat(v.Lat, 'f', -1, 64)
		el.Attrs["lon"] = strconv.FormatFloat(v.Lon, 'f', -1, 64)
	case *Way:
		el.Name = "way"
		for _, id := range v.NodeIDs {
			el.Children = append(el.Children, &osmxml.Element{
				Name:  "nd",
				Attrs: map[string]string{"ref": strconv.FormatInt(id, 10)},
			})
		}
	}

	keys := make([]string, 0, len(m.Tags))
	for k := range m.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		el.Children = append(el.Children, &osmxml.Element{
			Name:  "tag",
			Attrs: map[string]string{"k": k, "v": m.Tags[k]},
		})
	}

	return el
}

func metaAttrs(m Meta) map[string]string {
	attrs := map[string]string{"id": strconv.FormatInt(m.ID, 10)}
	if m.User != "" {
		attrs["user"] = m.User
	}
	if m.UID != 0 {
		attrs["uid"] = strconv.FormatInt(m.UID, 10)
	}
	if m.Version != 0 {
		attrs["version"] = strconv.Itoa(m.Version)
	}
	if m.Changeset != 0 {
		attrs["changeset"] = strconv.FormatInt(m.Changeset, 10)
	}
	if !m.Timestamp.IsZero() {
		attrs["timestamp"] = m.Timestamp.Format(time.RFC3339)
	}
	return attrs
}
