// Package ingest drives elements from a source through the shaper into sinks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"osm-ingest/osmxml"
	"osm-ingest/shape"
)

// Source yields elements until it returns io.EOF.
type Source interface {
	Next() (*osmxml.Element, error)
}

type Shaper interface {
	Shape(ctx context.Context, el *osmxml.Element) (*shape.Bundle, error)
}

type Sink interface {
	Write(ctx context.Context, b *shape.Bundle) error
}

type Stats struct {
	Elements int
	Nodes    int
	Ways     int
	Tags     int
	WayNodes int
	// Skipped counts elements the shaper ignored.
	Skipped int
}

func (s *Stats) add(b *shape.Bundle) {
	switch b.Kind {
	case shape.EntityNode:
		s.Nodes++
	case shape.EntityWay:
		s.Ways++
	}
	s.Tags += len(b.Tags)
	s.WayNodes += len(b.WayNodes)
}

const progressEvery = 100_000

// Run processes src to the end. The first error from any stage stops the run;
// the stats so far are returned with it.
func Run(ctx context.Context, src Source, shaper Shaper, sink Sink) (Stats, error) {
	var stats Stats
	start := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		el, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return stats, fmt.Errorf("read element %d: %w", stats.Elements+1, err)
		}
		stats.Elements++

		b, err := shaper.Shape(ctx, el)
		if err != nil {
			return stats, fmt.Errorf("shape %s %s: %w", el.Name, el.Attrs["id"], err)
		}
		if b == nil {
			stats.Skipped++
			continue
		}
		stats.add(b)

		if err := sink.Write(ctx, b); err != nil {
			return stats, fmt.Errorf("write %s %d: %w", b.Kind, b.EntityID(), err)
		}

		if stats.Elements%progressEvery == 0 {
			slog.Info("progress", "elements", stats.Elements, "nodes", stats.Nodes, "ways", stats.Ways,
				"elapsed", time.Since(start))
		}
	}

	slog.Info("ingest complete", "elements", stats.Elements, "nodes", stats.Nodes, "ways", stats.Ways,
		"tags", stats.Tags, "way_nodes", stats.WayNodes, "skipped", stats.Skipped, "elapsed", time.Since(start))
	return stats, nil
}

// MultiSink writes each bundle to every sink in order, stopping at the first
// error.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, b *shape.Bundle) error {
	for _, s := range m {
		if err := s.Write(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, b *shape.Bundle) error

func (f SinkFunc) Write(ctx context.Context, b *shape.Bundle) error {
	return f(ctx, b)
}
