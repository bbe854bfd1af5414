package overpass

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osm-ingest/osmxml"
)

//go:embed testdata/sample.json
var testSample string

func TestParseSample(t *testing.T) {
	sample := strings.NewReader(testSample)
	resp, err := ParseJSON(sample)
	require.Nil(t, err)

	assert.Equal(t, "Overpass API 0.7.62.1 084b4234", resp.Generator)
	assert.Equal(t, 4, resp.Count)
	assert.Len(t, resp.Nodes, 2)
	assert.Len(t, resp.Ways, 1)
	require.Len(t, resp.Elements, 3)

	way := resp.Ways[24087106]
	require.NotNil(t, way)
	assert.Equal(t, []int64{261114295, 261114296, 261114295}, way.NodeIDs)
	assert.Same(t, resp.Nodes[261114295], way.Nodes[0])
	assert.Same(t, way.Nodes[0], way.Nodes[2])

	meta := resp.Nodes[261114295].Meta()
	assert.Equal(t, "bdiscoe", meta.User)
	assert.Equal(t, 7, meta.Version)
	assert.Equal(t, time.Date(2012, 3, 28, 18, 31, 23, 0, time.UTC), meta.Timestamp)
}

func TestParseBadTimestamp(t *testing.T) {
	_, err := ParseJSON(strings.NewReader(`{"elements":[{"type":"node","id":1,"timestamp":"soon"}]}`))
	assert.ErrorContains(t, err, "node 1: timestamp")
}

func TestSource(t *testing.T) {
	resp, err := ParseJSON(strings.NewReader(testSample))
	require.NoError(t, err)
	src := NewSource(resp)

	way, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, &osmxml.Element{
		Name: "way",
		Attrs: map[string]string{
			"id":        "24087106",
			"user":      "woodpeck_fixbot",
			"uid":       "147510",
			"version":   "3",
			"changeset": "9233144",
			"timestamp": "2011-08-21T19:52:10Z",
		},
		Children: []*osmxml.Element{
			{Name: "nd", Attrs: map[string]string{"ref": "261114295"}},
			{Name: "nd", Attrs: map[string]string{"ref": "261114296"}},
			{Name: "nd", Attrs: map[string]string{"ref": "261114295"}},
			{Name: "tag", Attrs: map[string]string{"k": "addr:postcode", "v": "CA 92802"}},
			{Name: "tag", Attrs: map[string]string{"k": "building", "v": "yes"}},
		},
	}, way)

	node, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "node", node.Name)
	assert.Equal(t, "33.812727", node.Attrs["lat"])
	assert.Equal(t, "-117.918974", node.Attrs["lon"])
	assert.Equal(t, "addr:street", node.Children[0].Attrs["k"])

	bare, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "261114296", "lat": "33.813", "lon": "-117.918"}, bare.Attrs)
	assert.Empty(t, bare.Children)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery = string(body)
		_, _ = w.Write([]byte(testSample))
	}))
	defer srv.Close()

	q := BBoxQuery(33.80, -117.93, 33.82, -117.91, "addr:street")
	resp, err := New(srv.URL).Query(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, resp.Elements, 3)
	assert.Equal(t, q, gotQuery)
	assert.Contains(t, gotQuery, `way["addr:street"](33.800000,-117.930000,33.820000,-117.910000);`)
	assert.Contains(t, gotQuery, "out meta;")
}

func TestQueryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Query(context.Background(), "[out:json];")
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, http.StatusTooManyRequests, qe.StatusCode)
	assert.Equal(t, "rate limited\n", qe.Body)
}

func TestQueryRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(testSample))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetRateLimit(0.1, 1)
	_, err := c.Query(context.Background(), "[out:json];")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Query(ctx, "[out:json];")
	assert.ErrorContains(t, err, "wait for rate limit")
	assert.Equal(t, 1, calls)
}
