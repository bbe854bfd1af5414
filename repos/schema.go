package repos

import (
	"context"
	"fmt"
)

var tables = []string{"nodes", "nodes_tags", "ways", "ways_nodes", "ways_tags", "changes"}

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id BIGINT PRIMARY KEY,
	lat DOUBLE PRECISION NOT NULL,
	lon DOUBLE PRECISION NOT NULL,
	"user" TEXT,
	uid BIGINT,
	version TEXT,
	changeset BIGINT,
	"timestamp" TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS nodes_tags (
	id BIGINT NOT NULL,
	key TEXT NOT NULL,
	value TEXT,
	type TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS nodes_tags_id_idx ON nodes_tags (id);

CREATE TABLE IF NOT EXISTS ways (
	id BIGINT PRIMARY KEY,
	"user" TEXT,
	uid BIGINT,
	version TEXT,
	changeset BIGINT,
	"timestamp" TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS ways_nodes (
	id BIGINT NOT NULL,
	node_id BIGINT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (id, position)
);

CREATE TABLE IF NOT EXISTS ways_tags (
	id BIGINT NOT NULL,
	key TEXT NOT NULL,
	value TEXT,
	type TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ways_tags_id_idx ON ways_tags (id);

CREATE TABLE IF NOT EXISTS changes (
	seq BIGSERIAL PRIMARY KEY,
	original TEXT NOT NULL,
	new TEXT
);
`

// Migrate creates the tables. When drop is set existing tables are dropped
// first.
func (r *Repo) Migrate(ctx context.Context, drop bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if drop {
		for _, t := range tables {
			if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
				return fmt.Errorf("drop %s: %w", t, err)
			}
		}
	}

	if _, err := tx.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return tx.Commit(ctx)
}
