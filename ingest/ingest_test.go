package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osm-ingest/changelog"
	"osm-ingest/cleaning"
	"osm-ingest/osmxml"
	"osm-ingest/rules"
	"osm-ingest/shape"
)

const doc = `<?xml version="1.0"?>
<osm>
 <node id="1" lat="1.5" lon="2.5"><tag k="addr:street" v="N Main St."/><tag k="bad key" v="x"/></node>
 <node id="2" lat="1" lon="2"/>
 <way id="10"><nd ref="1"/><nd ref="2"/><nd ref="1"/><tag k="highway" v="residential"/></way>
</osm>`

func newShaper(log changelog.Logger) *shape.Shaper {
	return shape.New(cleaning.NewValueNormalizer(cleaning.NewStreet(rules.MustDefault()), log), shape.Hooks{})
}

type memSink struct {
	bundles []*shape.Bundle
}

func (m *memSink) Write(_ context.Context, b *shape.Bundle) error {
	m.bundles = append(m.bundles, b)
	return nil
}

func TestRun(t *testing.T) {
	var log changelog.Memory
	sink := &memSink{}

	stats, err := Run(context.Background(), osmxml.NewDecoder(strings.NewReader(doc)), newShaper(&log), sink)
	require.NoError(t, err)

	assert.Equal(t, Stats{Elements: 3, Nodes: 2, Ways: 1, Tags: 2, WayNodes: 3}, stats)
	require.Len(t, sink.bundles, 3)
	assert.Equal(t, int64(10), sink.bundles[2].EntityID())
	assert.Len(t, log.Records, 1)
}

func TestRunSkipped(t *testing.T) {
	src := osmxml.NewDecoder(strings.NewReader(`<osm><relation id="1"/><node id="2"/></osm>`), "node", "relation")

	stats, err := Run(context.Background(), src, newShaper(nil), &memSink{})
	require.NoError(t, err)
	assert.Equal(t, Stats{Elements: 2, Nodes: 1, Skipped: 1}, stats)
}

func TestRunSinkError(t *testing.T) {
	calls := 0
	sink := SinkFunc(func(context.Context, *shape.Bundle) error {
		calls++
		return errors.New("disk full")
	})

	stats, err := Run(context.Background(), osmxml.NewDecoder(strings.NewReader(doc)), newShaper(nil), sink)
	assert.EqualError(t, err, "write node 1: disk full")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, stats.Elements)
}

func TestRunMalformedDocument(t *testing.T) {
	bad := `<osm><node id="1"/><node id="2"><tag k="a" v="b"></node></osm>`

	stats, err := Run(context.Background(), osmxml.NewDecoder(strings.NewReader(bad)), newShaper(nil), &memSink{})
	assert.ErrorContains(t, err, "read element 2")
	assert.Equal(t, 1, stats.Nodes)
}

func TestRunMalformedAttribute(t *testing.T) {
	bad := `<osm><node id="one"/></osm>`

	_, err := Run(context.Background(), osmxml.NewDecoder(strings.NewReader(bad)), newShaper(nil), &memSink{})
	assert.ErrorIs(t, err, shape.ErrMalformed)
	assert.ErrorContains(t, err, "shape node one")
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, osmxml.NewDecoder(strings.NewReader(doc)), newShaper(nil), &memSink{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMultiSink(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	failing := SinkFunc(func(context.Context, *shape.Bundle) error { return errors.New("nope") })
	bundle := &shape.Bundle{Kind: shape.EntityNode, Node: &shape.NodeRecord{ID: 1}}

	require.NoError(t, MultiSink{a, b}.Write(context.Background(), bundle))
	assert.Len(t, a.bundles, 1)
	assert.Len(t, b.bundles, 1)

	err := MultiSink{a, failing, b}.Write(context.Background(), bundle)
	assert.EqualError(t, err, "nope")
	assert.Len(t, a.bundles, 2)
	assert.Len(t, b.bundles, 1)
}
