package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"MapReveal/internal/store"

	"github.com/google/uuid"
)

const markerColumns = "uid, display_name, COALESCE(map_uid, ''), x, y, w, h, ord"

func (c *Client) CreateMarker(ctx context.Context, name string, at int) (store.Marker, error) {
	uid := uuid.NewString()
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Marker{}, fmt.Errorf("marker name is required")
	}
	err := c.insertOrdered(ctx, "markers", uid, at, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO markers (uid, display_name, ord) VALUES (?, ?, ?)", uid, name, 0)
		if err != nil {
			return fmt.Errorf("inserting marker: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.Marker{}, err
	}
	return c.GetMarker(ctx, uid)
}

func (c *Client) GetMarker(ctx context.Context, uid string) (store.Marker, error) {
	row := c.db.QueryRowContext(ctx, "SELECT "+markerColumns+" FROM markers WHERE uid = ?", uid)
	m, err := scanMarker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Marker{}, fmt.Errorf("marker %s: %w", uid, store.ErrNotFound)
	}
	if err != nil {
		return store.Marker{}, fmt.Errorf("getting marker: %w", err)
	}
	return m, nil
}

func (c *Client) ListMarkers(ctx context.Context) ([]store.Marker, error) {
	return c.queryMarkers(ctx, "SELECT "+markerColumns+" FROM markers ORDER BY ord, rowid")
}

func (c *Client) ListMarkersForMap(ctx context.Context, mapUID string) ([]store.Marker, error) {
	return c.queryMarkers(ctx,
		"SELECT "+markerColumns+" FROM markers WHERE map_uid = ? ORDER BY ord, rowid", mapUID)
}

func (c *Client) queryMarkers(ctx context.Context, query string, args ...any) ([]store.Marker, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing markers: %w", err)
	}
	defer rows.Close()

	var markers []store.Marker
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning marker: %w", err)
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

// UpdateMarker stores name, owning map, position and size. Changing MapUID
// moves the marker to another map.
func (c *Client) UpdateMarker(ctx context.Context, m store.Marker) error {
	var mapUID any
	if m.MapUID != "" {
		mapUID = m.MapUID
	}
	res, err := c.db.ExecContext(ctx,
		"UPDATE markers SET display_name = ?, map_uid = ?, x = ?, y = ?, w = ?, h = ? WHERE uid = ?",
		m.DisplayName, mapUID, m.X, m.Y, m.W, m.H, m.UID)
	if err != nil {
		return fmt.Errorf("updating marker: %w", err)
	}
	return expectRow(res, "marker", m.UID)
}

func (c *Client) DeleteMarker(ctx context.Context, uid string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM markers WHERE uid = ?", uid)
		if err != nil {
			return fmt.Errorf("deleting marker: %w", err)
		}
		if err := expectRow(res, "marker", uid); err != nil {
			return err
		}
		uids, err := orderedUIDs(ctx, tx, "markers")
		if err != nil {
			return err
		}
		return applyOrder(ctx, tx, "markers", uids)
	})
}

func (c *Client) MoveMarker(ctx context.Context, from, to int) error {
	return c.move(ctx, "markers", from, to)
}

func scanMarker(row scanner) (store.Marker, error) {
	var m store.Marker
	err := row.Scan(&m.UID, &m.DisplayName, &m.MapUID, &m.X, &m.Y, &m.W, &m.H, &m.Order)
	return m, err
}
