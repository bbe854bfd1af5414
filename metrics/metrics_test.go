package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osm-ingest/cleaning"
	"osm-ingest/osmxml"
	"osm-ingest/rules"
	"osm-ingest/shape"
)

const doc = `<osm>
 <node id="1"><tag k="addr:street" v="Elm St"/><tag k="phone" v="12"/><tag k="bad key" v="x"/></node>
 <way id="2"><tag k="addr:postcode" v="CA 92802"/></way>
</osm>`

func TestHooks(t *testing.T) {
	m := New()
	values := cleaning.NewValueNormalizer(cleaning.NewStreet(rules.MustDefault()), nil)
	s := shape.New(values, m.Hooks())

	dec := osmxml.NewDecoder(strings.NewReader(doc))
	for i := 0; i < 2; i++ {
		el, err := dec.Next()
		require.NoError(t, err)
		_, err = s.Shape(context.Background(), el)
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Elements.WithLabelValues("node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Elements.WithLabelValues("way")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedTags))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Changes.WithLabelValues("street")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Changes.WithLabelValues("postcode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Unrecognized.WithLabelValues("phone")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.DroppedTags.Add(3)
	m.Finish(time.Now().Add(-2 * time.Second))

	path := filepath.Join(t.TempDir(), "osm_ingest.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "osm_ingest_dropped_tags_total 3")
	assert.Contains(t, string(data), "# TYPE osm_ingest_last_success_timestamp_seconds gauge")
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.Duration), 2.0)
}
