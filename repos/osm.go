package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"osm-ingest/changelog"
	"osm-ingest/shape"
)

type copySource struct {
	table   string
	columns []string
	rows    [][]any
}

// SaveBundles bulk loads bundles in a single transaction.
func (r *Repo) SaveBundles(ctx context.Context, bundles []*shape.Bundle) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, src := range bundleRows(bundles) {
		if len(src.rows) == 0 {
			continue
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{src.table}, src.columns, pgx.CopyFromRows(src.rows))
		if err != nil {
			return fmt.Errorf("copy %s: %w", src.table, err)
		}
	}

	return tx.Commit(ctx)
}

// SaveChanges appends change records in order.
func (r *Repo) SaveChanges(ctx context.Context, changes []changelog.ChangeRecord) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"changes"},
		shape.ChangeColumns,
		pgx.CopyFromSlice(len(changes), func(i int) ([]any, error) {
			return changeValues(changes[i]), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy changes: %w", err)
	}
	return nil
}

func bundleRows(bundles []*shape.Bundle) []copySource {
	nodes := copySource{table: "nodes", columns: shape.NodeColumns}
	nodeTags := copySource{table: "nodes_tags", columns: shape.TagColumns}
	ways := copySource{table: "ways", columns: shape.WayColumns}
	wayNodes := copySource{table: "ways_nodes", columns: shape.WayNodeColumns}
	wayTags := copySource{table: "ways_tags", columns: shape.TagColumns}

	for _, b := range bundles {
		switch b.Kind {
		case shape.EntityNode:
			nodes.rows = append(nodes.rows, nodeValues(b.Node))
			for _, t := range b.Tags {
				nodeTags.rows = append(nodeTags.rows, tagValues(t))
			}
		case shape.EntityWay:
			ways.rows = append(ways.rows, wayValues(b.Way))
			for _, wn := range b.WayNodes {
				wayNodes.rows = append(wayNodes.rows, []any{wn.ID, wn.NodeID, int32(wn.Position)})
			}
			for _, t := range b.Tags {
				wayTags.rows = append(wayTags.rows, tagValues(t))
			}
		}
	}

	// Parents first so foreign keys added later by hand still load.
	return []copySource{nodes, ways, nodeTags, wayNodes, wayTags}
}

func nodeValues(n *shape.NodeRecord) []any {
	return []any{n.ID, n.Lat, n.Lon, nullString(n.User), n.UID, nullString(n.Version), n.Changeset, nullTime(n.Timestamp)}
}

func wayValues(w *shape.WayRecord) []any {
	return []any{w.ID, nullString(w.User), w.UID, nullString(w.Version), w.Changeset, nullTime(w.Timestamp)}
}

func tagValues(t shape.TagRecord) []any {
	return []any{t.ID, t.Key, t.Value, t.Type}
}

func changeValues(c changelog.ChangeRecord) []any {
	return []any{c.Original, c.New}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
