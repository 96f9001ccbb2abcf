package sqlite

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS maps (
		uid          TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		ord          INTEGER NOT NULL,
		created_at   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS markers (
		uid          TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		map_uid      TEXT REFERENCES maps(uid) ON DELETE SET NULL,
		x            REAL NOT NULL DEFAULT 0,
		y            REAL NOT NULL DEFAULT 0,
		w            REAL NOT NULL DEFAULT 0,
		h            REAL NOT NULL DEFAULT 0,
		ord          INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_maps_ord ON maps(ord)`,
	`CREATE INDEX IF NOT EXISTS idx_markers_map ON markers(map_uid, ord)`,
}

func (c *Client) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}
