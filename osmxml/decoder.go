package osmxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// DefaultNames are the elements a Decoder yields when none are given.
var DefaultNames = []string{"node", "way"}

// Decoder yields the selected elements of a document. Only one element subtree
// is held in memory at a time.
type Decoder struct {
	dec   *xml.Decoder
	names map[string]bool
}

func NewDecoder(r io.Reader, names ...string) *Decoder {
	if len(names) == 0 {
		names = DefaultNames
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return &Decoder{dec: xml.NewDecoder(r), names: set}
}

// Next returns the next selected element, or io.EOF once the document is
// exhausted. Any other error means the document is malformed.
func (d *Decoder) Next() (*Element, error) {
	for {
		tok, err := d.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		} else if err != nil {
			return nil, d.wrap(err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || !d.names[start.Name.Local] {
			continue
		}

		el, err := d.read(start)
		if err != nil {
			return nil, d.wrap(err)
		}
		return el, nil
	}
}

func (d *Decoder) read(start xml.StartElement) (*Element, error) {
	el := &Element{
		Name:  start.Name.Local,
		Attrs: make(map[string]string, len(start.Attr)),
	}
	for _, a := range start.Attr {
		el.Attrs[a.Name.Local] = a.Value
	}

	for {
		tok, err := d.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		} else if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := d.read(t)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case xml.EndElement:
			return el, nil
		}
	}
}

func (d *Decoder) wrap(err error) error {
	return fmt.Errorf("decode osm xml at offset %d: %w", d.dec.InputOffset(), err)
}
