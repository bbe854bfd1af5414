// Package metrics counts what an ingest run shaped and rewrote.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"osm-ingest/cleaning"
	"osm-ingest/shape"
)

type Metrics struct {
	Registry *prometheus.Registry

	Elements     *prometheus.CounterVec
	DroppedTags  prometheus.Counter
	Changes      *prometheus.CounterVec
	Unrecognized *prometheus.CounterVec
	Duration     prometheus.Gauge
	LastSuccess  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Elements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "osm_ingest_elements_total",
			Help: "Elements shaped into records",
		}, []string{"kind"}),
		DroppedTags: factory.NewCounter(prometheus.CounterOpts{
			Name: "osm_ingest_dropped_tags_total",
			Help: "Tags dropped for having an unusable key",
		}),
		Changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "osm_ingest_changed_values_total",
			Help: "Tag values rewritten by normalization",
		}, []string{"tag_kind"}),
		Unrecognized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "osm_ingest_unrecognized_values_total",
			Help: "Tag values the normalizer could not recognize and stored as null",
		}, []string{"tag_kind"}),
		Duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "osm_ingest_run_duration_seconds",
			Help: "Duration of the last run",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "osm_ingest_last_success_timestamp_seconds",
			Help: "Unix time the last successful run finished",
		}),
	}
}

// Hooks returns shaper hooks feeding m.
func (m *Metrics) Hooks() shape.Hooks {
	return shape.Hooks{
		OnElement: func(kind shape.EntityKind) {
			m.Elements.WithLabelValues(string(kind)).Inc()
		},
		OnTagDropped: func(string) {
			m.DroppedTags.Inc()
		},
		OnChange: func(kind cleaning.TagKind) {
			m.Changes.WithLabelValues(kind.String()).Inc()
		},
		OnUnrecognized: func(kind cleaning.TagKind) {
			m.Unrecognized.WithLabelValues(kind.String()).Inc()
		},
	}
}

// Finish records a successful run that began at start.
func (m *Metrics) Finish(start time.Time) {
	m.Duration.Set(time.Since(start).Seconds())
	m.LastSuccess.SetToCurrentTime()
}

// WriteTextfile writes every metric in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
