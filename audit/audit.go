// Package audit scans OSM elements for values the cleaning rules do not cover.
package audit

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/paulmach/orb"

	"osm-ingest/cleaning"
	"osm-ingest/osmxml"
	"osm-ingest/rules"
)

// The street type is the last whitespace separated token, trailing dot included.
var streetTypeRe = regexp.MustCompile(`\S+$`)

// Auditor collects findings over any number of elements.
type Auditor struct {
	rules       rules.Rules
	streetTypes map[string]map[string]struct{}
	phones      map[string]struct{}
	postcodes   map[string]struct{}
	bound       orb.Bound
	hasBound    bool
	elements    int
}

func New(r rules.Rules) *Auditor {
	return &Auditor{
		rules:       r,
		streetTypes: make(map[string]map[string]struct{}),
		phones:      make(map[string]struct{}),
		postcodes:   make(map[string]struct{}),
	}
}

// Add audits el and every tag below it.
func (a *Auditor) Add(el *osmxml.Element) {
	a.elements++

	if el.Name == "node" {
		a.addPoint(el)
	}

	el.Walk(func(c *osmxml.Element) {
		if c.Name != "tag" {
			return
		}
		v := c.Attrs["v"]
		switch cleaning.KindOf(c.Attrs["k"]) {
		case cleaning.KindStreet:
			a.addStreet(v)
		case cleaning.KindPhone:
			if _, ok := cleaning.Phone(v); !ok {
				a.phones[v] = struct{}{}
			}
		case cleaning.KindPostcode:
			if _, ok := cleaning.Zip(v); !ok {
				a.postcodes[v] = struct{}{}
			}
		}
	})
}

func (a *Auditor) addStreet(name string) {
	typ := streetTypeRe.FindString(name)
	if typ == "" || a.rules.IsExpectedStreetType(typ) {
		return
	}
	names, ok := a.streetTypes[typ]
	if !ok {
		names = make(map[string]struct{})
		a.streetTypes[typ] = names
	}
	names[name] = struct{}{}
}

func (a *Auditor) addPoint(el *osmxml.Element) {
	lat, err := strconv.ParseFloat(el.Attrs["lat"], 64)
	if err != nil {
		return
	}
	lon, err := strconv.ParseFloat(el.Attrs["lon"], 64)
	if err != nil {
		return
	}

	p := orb.Point{lon, lat}
	if !a.hasBound {
		a.bound = p.Bound()
		a.hasBound = true
		return
	}
	a.bound = a.bound.Extend(p)
}

// Result is a sorted snapshot of the findings.
type Result struct {
	Elements int
	// UnexpectedStreetTypes maps a street type to the street names using it.
	UnexpectedStreetTypes map[string][]string
	BadPhones             []string
	BadPostcodes          []string
	Bound                 orb.Bound
	HasBound              bool
}

func (a *Auditor) Result() Result {
	res := Result{
		Elements:              a.elements,
		UnexpectedStreetTypes: make(map[string][]string, len(a.streetTypes)),
		BadPhones:             sortedKeys(a.phones),
		BadPostcodes:          sortedKeys(a.postcodes),
		Bound:                 a.bound,
		HasBound:              a.hasBound,
	}
	for typ, names := range a.streetTypes {
		res.UnexpectedStreetTypes[typ] = sortedKeys(names)
	}
	return res
}

// WriteReport writes the findings as markdown tables.
func (r Result) WriteReport(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Audited %d elements\n\n", r.Elements)

	types := make([]string, 0, len(r.UnexpectedStreetTypes))
	for typ := range r.UnexpectedStreetTypes {
		types = append(types, typ)
	}
	sort.Strings(types)

	rows := [][]string{{"street type", "count", "street names"}}
	for _, typ := range types {
		names := r.UnexpectedStreetTypes[typ]
		rows = append(rows, []string{typ, fmt.Sprint(len(names)), strings.Join(names, "; ")})
	}
	sb.WriteString("## Unexpected street types\n\n")
	writeTable(&sb, rows)

	sb.WriteString("\n## Unrecognized values\n\n")
	rows = [][]string{{"kind", "value"}}
	for _, v := range r.BadPhones {
		rows = append(rows, []string{cleaning.KindPhone.String(), v})
	}
	for _, v := range r.BadPostcodes {
		rows = append(rows, []string{cleaning.KindPostcode.String(), v})
	}
	writeTable(&sb, rows)

	if r.HasBound {
		b := r.Bound
		fmt.Fprintf(&sb, "\nBounding box (left, bottom, right, top): %.6f,%.6f,%.6f,%.6f\n",
			b.Left(), b.Bottom(), b.Right(), b.Top())
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// writeTable pads cells by display width so wide characters stay aligned.
func writeTable(sb *strings.Builder, rows [][]string) {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i, cell := range cells {
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(rows[0])
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows[1:] {
		writeRow(row)
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
