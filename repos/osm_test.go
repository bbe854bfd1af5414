package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osm-ingest/changelog"
	"osm-ingest/shape"
)

func ptr(s string) *string { return &s }

var (
	ts   = time.Date(2012, 3, 28, 18, 31, 23, 0, time.UTC)
	node = &shape.Bundle{
		Kind: shape.EntityNode,
		Node: &shape.NodeRecord{ID: 1, Lat: 33.81, Lon: -117.91, User: "bdiscoe", UID: 402624, Version: "7", Changeset: 11, Timestamp: ts},
		Tags: []shape.TagRecord{{ID: 1, Key: "postcode", Value: nil, Type: "addr"}},
	}
	way = &shape.Bundle{
		Kind: shape.EntityWay,
		Way:  &shape.WayRecord{ID: 10},
		Tags: []shape.TagRecord{{ID: 10, Key: "building", Value: ptr("yes"), Type: "regular"}},
		WayNodes: []shape.WayNodeRecord{
			{ID: 10, NodeID: 1, Position: 0},
			{ID: 10, NodeID: 2, Position: 1},
			{ID: 10, NodeID: 1, Position: 2},
		},
	}
)

func TestBundleRows(t *testing.T) {
	srcs := bundleRows([]*shape.Bundle{node, way})
	require.Len(t, srcs, 5)

	byTable := make(map[string]copySource)
	for _, s := range srcs {
		byTable[s.table] = s
		for _, row := range s.rows {
			assert.Len(t, row, len(s.columns), s.table)
		}
	}

	assert.Equal(t, "nodes", srcs[0].table)
	assert.Equal(t, [][]any{{int64(1), 33.81, -117.91, ptr("bdiscoe"), int64(402624), ptr("7"), int64(11), &ts}}, byTable["nodes"].rows)
	assert.Equal(t, [][]any{{int64(1), "postcode", (*string)(nil), "addr"}}, byTable["nodes_tags"].rows)

	wayRow := byTable["ways"].rows[0]
	assert.Equal(t, int64(10), wayRow[0])
	assert.Nil(t, wayRow[1])
	assert.Nil(t, wayRow[5])

	assert.Equal(t, [][]any{
		{int64(10), int64(1), int32(0)},
		{int64(10), int64(2), int32(1)},
		{int64(10), int64(1), int32(2)},
	}, byTable["ways_nodes"].rows)
	assert.Len(t, byTable["ways_tags"].rows, 1)
}

func TestChangeValues(t *testing.T) {
	assert.Equal(t, []any{"St", ptr("Street")}, changeValues(changelog.ChangeRecord{Original: "St", New: ptr("Street")}))
	assert.Equal(t, []any{"555-123", (*string)(nil)}, changeValues(changelog.ChangeRecord{Original: "555-123"}))
}

type storeMock struct {
	bundles [][]*shape.Bundle
	changes [][]changelog.ChangeRecord
	err     error
}

func (m *storeMock) SaveBundles(_ context.Context, bundles []*shape.Bundle) error {
	if m.err != nil {
		return m.err
	}
	m.bundles = append(m.bundles, append([]*shape.Bundle(nil), bundles...))
	return nil
}

func (m *storeMock) SaveChanges(_ context.Context, changes []changelog.ChangeRecord) error {
	m.changes = append(m.changes, append([]changelog.ChangeRecord(nil), changes...))
	return nil
}

func TestBatchWriter(t *testing.T) {
	ctx := context.Background()
	store := &storeMock{}
	w := NewBatchWriter(store, 2)

	require.NoError(t, w.Log(ctx, changelog.ChangeRecord{Original: "a"}))
	require.NoError(t, w.Write(ctx, node))
	assert.Empty(t, store.bundles)

	require.NoError(t, w.Write(ctx, way))
	require.Len(t, store.bundles, 1)
	assert.Equal(t, []*shape.Bundle{node, way}, store.bundles[0])
	assert.Equal(t, [][]changelog.ChangeRecord{{{Original: "a"}}}, store.changes)

	require.NoError(t, w.Write(ctx, node))
	require.NoError(t, w.Flush(ctx))
	require.NoError(t, w.Flush(ctx))
	assert.Len(t, store.bundles, 2)
	assert.Len(t, store.changes, 1)
	assert.Equal(t, 3, w.Saved())
}

func TestBatchWriterError(t *testing.T) {
	store := &storeMock{err: errors.New("connection reset")}
	w := NewBatchWriter(store, 1)

	err := w.Write(context.Background(), node)
	assert.EqualError(t, err, "save 1 bundles: connection reset")
}
