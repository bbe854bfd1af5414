package osmxml

import (
	"bytes"
	_ "embed"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/sample.osm
var sample []byte

func readAll(t *testing.T, d *Decoder) []*Element {
	t.Helper()
	var out []*Element
	for {
		el, err := d.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, el)
	}
}

func TestDecodeSample(t *testing.T) {
	els := readAll(t, NewDecoder(bytes.NewReader(sample)))
	require.Len(t, els, 3)

	node := els[0]
	assert.Equal(t, "node", node.Name)
	id, ok := node.Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "261114295", id)
	assert.Equal(t, "33.8127270", node.Attrs["lat"])
	require.Len(t, node.Children, 4)
	assert.Equal(t, &Element{
		Name:  "tag",
		Attrs: map[string]string{"k": "addr:street", "v": "S Harbor Blvd"},
	}, node.Children[0])

	assert.Equal(t, "node", els[1].Name)
	assert.Empty(t, els[1].Children)

	way := els[2]
	assert.Equal(t, "way", way.Name)
	require.Len(t, way.Children, 11)
	assert.Equal(t, "nd", way.Children[0].Name)
	assert.Equal(t, way.Children[0].Attrs["ref"], way.Children[6].Attrs["ref"])
}

func TestDecodeSelectedNames(t *testing.T) {
	els := readAll(t, NewDecoder(bytes.NewReader(sample), "relation"))
	require.Len(t, els, 1)
	assert.Equal(t, "1764", els[0].Attrs["id"])
	assert.Len(t, els[0].Children, 2)
}

func TestWalk(t *testing.T) {
	doc := `<osm><way id="1"><nd ref="1"/><x><tag k="a" v="b"/></x><nd ref="2"/></way></osm>`
	els := readAll(t, NewDecoder(strings.NewReader(doc)))
	require.Len(t, els, 1)

	var names []string
	els[0].Walk(func(e *Element) { names = append(names, e.Name) })
	assert.Equal(t, []string{"nd", "x", "tag", "nd"}, names)
}

func TestDecodeMalformed(t *testing.T) {
	table := []string{
		`<osm><node id="1"><tag k="a" v="b"></node></osm>`,
		`<osm><node id="1"><tag k="a" v="b"/>`,
		`<osm><node id="1 /></osm>`,
	}
	for _, doc := range table {
		d := NewDecoder(strings.NewReader(doc))
		_, err := d.Next()
		assert.ErrorContains(t, err, "decode osm xml", doc)
	}
}

func TestDecodeEmpty(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("")).Next()
	assert.Equal(t, io.EOF, err)
}
