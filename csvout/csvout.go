// Package csvout writes shaped records as one CSV file per table.
package csvout

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"osm-ingest/changelog"
	"osm-ingest/shape"
)

// File names used by Create.
const (
	NodesFile    = "nodes.csv"
	NodeTagsFile = "nodes_tags.csv"
	WaysFile     = "ways.csv"
	WayNodesFile = "ways_nodes.csv"
	WayTagsFile  = "ways_tags.csv"
	ChangesFile  = "changes.csv"
)

// Files are the destinations of each table.
type Files struct {
	Nodes    io.Writer
	NodeTags io.Writer
	Ways     io.Writer
	WayNodes io.Writer
	WayTags  io.Writer
	Changes  io.Writer
}

// Writer is both a bundle sink and a change logger. Null values are written
// as empty fields.
type Writer struct {
	nodes    *csv.Writer
	nodeTags *csv.Writer
	ways     *csv.Writer
	wayNodes *csv.Writer
	wayTags  *csv.Writer
	changes  *csv.Writer
	closers  []io.Closer
}

// New writes the header row of every table.
func New(f Files) (*Writer, error) {
	w := &Writer{
		nodes:    csv.NewWriter(f.Nodes),
		nodeTags: csv.NewWriter(f.NodeTags),
		ways:     csv.NewWriter(f.Ways),
		wayNodes: csv.NewWriter(f.WayNodes),
		wayTags:  csv.NewWriter(f.WayTags),
		changes:  csv.NewWriter(f.Changes),
	}

	headers := []struct {
		cw   *csv.Writer
		cols []string
	}{
		{w.nodes, shape.NodeColumns},
		{w.nodeTags, shape.TagColumns},
		{w.ways, shape.WayColumns},
		{w.wayNodes, shape.WayNodeColumns},
		{w.wayTags, shape.TagColumns},
		{w.changes, shape.ChangeColumns},
	}
	for _, h := range headers {
		if err := h.cw.Write(h.cols); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return w, nil
}

// Create creates dir if needed and opens the six table files inside it.
func Create(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	names := []string{NodesFile, NodeTagsFile, WaysFile, WayNodesFile, WayTagsFile, ChangesFile}
	files := make([]*os.File, 0, len(names))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, name := range names {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		files = append(files, f)
	}

	w, err := New(Files{
		Nodes:    files[0],
		NodeTags: files[1],
		Ways:     files[2],
		WayNodes: files[3],
		WayTags:  files[4],
		Changes:  files[5],
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	for _, f := range files {
		w.closers = append(w.closers, f)
	}
	return w, nil
}

func (w *Writer) Write(_ context.Context, b *shape.Bundle) error {
	switch b.Kind {
	case shape.EntityNode:
		if err := w.nodes.Write(NodeRow(b.Node)); err != nil {
			return err
		}
		return writeTags(w.nodeTags, b.Tags)
	case shape.EntityWay:
		if err := w.ways.Write(WayRow(b.Way)); err != nil {
			return err
		}
		for _, wn := range b.WayNodes {
			if err := w.wayNodes.Write(WayNodeRow(wn)); err != nil {
				return err
			}
		}
		return writeTags(w.wayTags, b.Tags)
	default:
		return fmt.Errorf("unknown bundle kind %q", b.Kind)
	}
}

func (w *Writer) Log(_ context.Context, c changelog.ChangeRecord) error {
	return w.changes.Write([]string{c.Original, c.NewValue()})
}

// Flush flushes every table and returns the first write error seen.
func (w *Writer) Flush() error {
	var errs []error
	for _, cw := range w.all() {
		cw.Flush()
		errs = append(errs, cw.Error())
	}
	return errors.Join(errs...)
}

// Close flushes and closes files opened by Create.
func (w *Writer) Close() error {
	errs := []error{w.Flush()}
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (w *Writer) all() []*csv.Writer {
	return []*csv.Writer{w.nodes, w.nodeTags, w.ways, w.wayNodes, w.wayTags, w.changes}
}

func writeTags(cw *csv.Writer, tags []shape.TagRecord) error {
	for _, t := range tags {
		if err := cw.Write(TagRow(t)); err != nil {
			return err
		}
	}
	return nil
}

func NodeRow(n *shape.NodeRecord) []string {
	return []string{
		formatInt(n.ID),
		formatFloat(n.Lat),
		formatFloat(n.Lon),
		n.User,
		formatInt(n.UID),
		n.Version,
		formatInt(n.Changeset),
		formatTime(n.Timestamp),
	}
}

func WayRow(w *shape.WayRecord) []string {
	return []string{
		formatInt(w.ID),
		w.User,
		formatInt(w.UID),
		w.Version,
		formatInt(w.Changeset),
		formatTime(w.Timestamp),
	}
}

func TagRow(t shape.TagRecord) []string {
	value := ""
	if t.Value != nil {
		value = *t.Value
	}
	return []string{formatInt(t.ID), t.Key, value, t.Type}
}

func WayNodeRow(wn shape.WayNodeRecord) []string {
	return []string{formatInt(wn.ID), formatInt(wn.NodeID), strconv.Itoa(wn.Position)}
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
