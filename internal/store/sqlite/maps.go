package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"MapReveal/internal/store"

	"github.com/google/uuid"
)

func (c *Client) CreateMap(ctx context.Context, name string, at int) (store.Map, error) {
	m := store.Map{
		UID:         uuid.NewString(),
		DisplayName: strings.TrimSpace(name),
		CreatedAt:   c.now().UTC(),
	}
	if m.DisplayName == "" {
		return store.Map{}, fmt.Errorf("map name is required")
	}
	err := c.insertOrdered(ctx, "maps", m.UID, at, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO maps (uid, display_name, ord, created_at) VALUES (?, ?, ?, ?)",
			m.UID, m.DisplayName, 0, m.CreatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("inserting map: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.Map{}, err
	}
	return c.GetMap(ctx, m.UID)
}

func (c *Client) GetMap(ctx context.Context, uid string) (store.Map, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT uid, display_name, ord, created_at FROM maps WHERE uid = ?", uid)
	m, err := scanMap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Map{}, fmt.Errorf("map %s: %w", uid, store.ErrNotFound)
	}
	if err != nil {
		return store.Map{}, fmt.Errorf("getting map: %w", err)
	}
	return m, nil
}

func (c *Client) ListMaps(ctx context.Context) ([]store.Map, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT uid, display_name, ord, created_at FROM maps ORDER BY ord, rowid")
	if err != nil {
		return nil, fmt.Errorf("listing maps: %w", err)
	}
	defer rows.Close()

	var maps []store.Map
	for rows.Next() {
		m, err := scanMap(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning map: %w", err)
		}
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

func (c *Client) RenameMap(ctx context.Context, uid, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("map name is required")
	}
	res, err := c.db.ExecContext(ctx, "UPDATE maps SET display_name = ? WHERE uid = ?", name, uid)
	if err != nil {
		return fmt.Errorf("renaming map: %w", err)
	}
	return expectRow(res, "map", uid)
}

func (c *Client) DeleteMap(ctx context.Context, uid string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM maps WHERE uid = ?", uid)
		if err != nil {
			return fmt.Errorf("deleting map: %w", err)
		}
		if err := expectRow(res, "map", uid); err != nil {
			return err
		}
		uids, err := orderedUIDs(ctx, tx, "maps")
		if err != nil {
			return err
		}
		return applyOrder(ctx, tx, "maps", uids)
	})
}

func (c *Client) MoveMap(ctx context.Context, from, to int) error {
	return c.move(ctx, "maps", from, to)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMap(row scanner) (store.Map, error) {
	var m store.Map
	var created int64
	if err := row.Scan(&m.UID, &m.DisplayName, &m.Order, &created); err != nil {
		return store.Map{}, err
	}
	m.CreatedAt = time.Unix(0, created).UTC()
	return m, nil
}

func expectRow(res sql.Result, kind, uid string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking %s update: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, uid, store.ErrNotFound)
	}
	return nil
}
