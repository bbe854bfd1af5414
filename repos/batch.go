package repos

import (
	"context"
	"fmt"
	"log/slog"

	"osm-ingest/changelog"
	"osm-ingest/shape"
)

// Store is the part of Repo used by BatchWriter.
type Store interface {
	SaveBundles(ctx context.Context, bundles []*shape.Bundle) error
	SaveChanges(ctx context.Context, changes []changelog.ChangeRecord) error
}

// BatchWriter buffers bundles and change records and saves them every size
// bundles. Call Flush after the last Write.
type BatchWriter struct {
	store   Store
	size    int
	bundles []*shape.Bundle
	changes []changelog.ChangeRecord
	saved   int
}

func NewBatchWriter(store Store, size int) *BatchWriter {
	if size <= 0 {
		size = 1
	}
	return &BatchWriter{store: store, size: size}
}

func (w *BatchWriter) Write(ctx context.Context, b *shape.Bundle) error {
	w.bundles = append(w.bundles, b)
	if len(w.bundles) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

func (w *BatchWriter) Log(_ context.Context, c changelog.ChangeRecord) error {
	w.changes = append(w.changes, c)
	return nil
}

// Flush saves everything buffered. Bundles are saved before changes.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.bundles) > 0 {
		if err := w.store.SaveBundles(ctx, w.bundles); err != nil {
			return fmt.Errorf("save %d bundles: %w", len(w.bundles), err)
		}
		w.saved += len(w.bundles)
		slog.Debug("saved batch", "bundles", len(w.bundles), "total", w.saved)
		w.bundles = w.bundles[:0]
	}

	if len(w.changes) > 0 {
		if err := w.store.SaveChanges(ctx, w.changes); err != nil {
			return fmt.Errorf("save %d changes: %w", len(w.changes), err)
		}
		w.changes = w.changes[:0]
	}
	return nil
}

// Saved is the number of bundles saved so far.
func (w *BatchWriter) Saved() int {
	return w.saved
}
