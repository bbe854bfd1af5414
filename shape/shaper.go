package shape

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"osm-ingest/cleaning"
	"osm-ingest/osmxml"
)

// ErrMalformed marks an element whose attributes cannot be parsed.
var ErrMalformed = errors.New("malformed element")

// Hooks observe shaping. Any of them may be nil.
type Hooks struct {
	OnElement      func(kind EntityKind)
	OnTagDropped   func(rawKey string)
	OnChange       func(kind cleaning.TagKind)
	OnUnrecognized func(kind cleaning.TagKind)
}

type Shaper struct {
	values      *cleaning.ValueNormalizer
	defaultType string
	hooks       Hooks
}

func New(values *cleaning.ValueNormalizer, hooks Hooks) *Shaper {
	return &Shaper{values: values, defaultType: DefaultType, hooks: hooks}
}

// Shape converts a node or way element into its records. Other elements yield
// a nil bundle and no error.
func (s *Shaper) Shape(ctx context.Context, el *osmxml.Element) (*Bundle, error) {
	var (
		b   *Bundle
		err error
	)
	switch el.Name {
	case string(EntityNode):
		b, err = s.shapeNode(ctx, el)
	case string(EntityWay):
		b, err = s.shapeWay(ctx, el)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.hooks.OnElement != nil {
		s.hooks.OnElement(b.Kind)
	}
	return b, nil
}

func (s *Shaper) shapeNode(ctx context.Context, el *osmxml.Element) (*Bundle, error) {
	a := attrs{el: el}
	node := &NodeRecord{
		ID:        a.parseInt("id"),
		Lat:       a.parseFloat("lat"),
		Lon:       a.parseFloat("lon"),
		User:      el.Attrs["user"],
		UID:       a.parseInt("uid"),
		Version:   el.Attrs["version"],
		Changeset: a.parseInt("changeset"),
		Timestamp: a.parseTime("timestamp"),
	}
	if a.err != nil {
		return nil, a.err
	}

	b := &Bundle{Kind: EntityNode, Node: node, Tags: []TagRecord{}}

	var err error
	el.Walk(func(c *osmxml.Element) {
		if err != nil || c.Name != "tag" {
			return
		}
		err = s.appendTag(ctx, b, node.ID, c)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Shaper) shapeWay(ctx context.Context, el *osmxml.Element) (*Bundle, error) {
	a := attrs{el: el}
	way := &WayRecord{
		ID:        a.parseInt("id"),
		User:      el.Attrs["user"],
		UID:       a.parseInt("uid"),
		Version:   el.Attrs["version"],
		Changeset: a.parseInt("changeset"),
		Timestamp: a.parseTime("timestamp"),
	}
	if a.err != nil {
		return nil, a.err
	}

	b := &Bundle{Kind: EntityWay, Way: way, Tags: []TagRecord{}, WayNodes: []WayNodeRecord{}}

	var err error
	el.Walk(func(c *osmxml.Element) {
		if err != nil {
			return
		}
		switch c.Name {
		case "tag":
			err = s.appendTag(ctx, b, way.ID, c)
		case "nd":
			ref := attrs{el: c}
			nodeID := ref.parseInt("ref")
			if ref.err != nil {
				err = ref.err
				return
			}
			b.WayNodes = append(b.WayNodes, WayNodeRecord{
				ID:       way.ID,
				NodeID:   nodeID,
				Position: len(b.WayNodes),
			})
		}
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Shaper) appendTag(ctx context.Context, b *Bundle, owner int64, el *osmxml.Element) error {
	k, ok := el.Attr("k")
	if !ok || k == "" {
		s.dropped(k)
		return nil
	}

	tag, ok := Decompose(k, s.defaultType)
	if !ok {
		s.dropped(k)
		return nil
	}

	kind := cleaning.KindOf(tag.FullKey())
	res, err := s.values.Normalize(ctx, kind, el.Attrs["v"])
	if err != nil {
		return fmt.Errorf("%s %d tag %q: %w", b.Kind, owner, k, err)
	}

	if res.Value == nil && s.hooks.OnUnrecognized != nil {
		s.hooks.OnUnrecognized(kind)
	} else if res.Changed && s.hooks.OnChange != nil {
		s.hooks.OnChange(kind)
	}

	b.Tags = append(b.Tags, TagRecord{
		ID:    owner,
		Key:   tag.Key,
		Value: res.Value,
		Type:  tag.Type,
	})
	return nil
}

func (s *Shaper) dropped(k string) {
	if s.hooks.OnTagDropped != nil {
		s.hooks.OnTagDropped(k)
	}
}

// attrs parses typed attributes, keeping the first error. Missing attributes
// parse as zero values.
type attrs struct {
	el  *osmxml.Element
	err error
}

func (a *attrs) raw(name string) (string, bool) {
	if a.err != nil {
		return "", false
	}
	v, ok := a.el.Attr(name)
	return v, ok && v != ""
}

func (a *attrs) fail(name, v string, err error) {
	a.err = fmt.Errorf("%w: %s attribute %s=%q: %w", ErrMalformed, a.el.Name, name, v, err)
}

func (a *attrs) parseInt(name string) int64 {
	v, ok := a.raw(name)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		a.fail(name, v, err)
	}
	return n
}

func (a *attrs) parseFloat(name string) float64 {
	v, ok := a.raw(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		a.fail(name, v, err)
	}
	return f
}

func (a *attrs) parseTime(name string) time.Time {
	v, ok := a.raw(name)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		a.fail(name, v, err)
	}
	return t
}
