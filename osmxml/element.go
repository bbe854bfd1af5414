// Package osmxml streams OpenStreetMap XML documents one element at a time.
package osmxml

// Element is one XML element with its subtree. Children keep document order.
type Element struct {
	Name     string
	Attrs    map[string]string
	Children []*Element
}

func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Walk calls fn for every descendant of e in document order. e itself is not
// visited.
func (e *Element) Walk(fn func(*Element)) {
	for _, c := range e.Children {
		fn(c)
		c.Walk(fn)
	}
}
