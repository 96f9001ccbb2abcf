package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"MapReveal/internal/store"
)

// orderedUIDs returns the uids of table in display order.
func orderedUIDs(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT uid FROM "+table+" ORDER BY ord, rowid")
	if err != nil {
		return nil, fmt.Errorf("listing %s order: %w", table, err)
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scanning %s order: %w", table, err)
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// applyOrder rewrites ord so it matches the position in uids.
func applyOrder(ctx context.Context, tx *sql.Tx, table string, uids []string) error {
	stmt, err := tx.PrepareContext(ctx, "UPDATE "+table+" SET ord = ? WHERE uid = ?")
	if err != nil {
		return fmt.Errorf("preparing %s order: %w", table, err)
	}
	defer stmt.Close()
	for i, uid := range uids {
		if _, err := stmt.ExecContext(ctx, i, uid); err != nil {
			return fmt.Errorf("ordering %s: %w", table, err)
		}
	}
	return nil
}

func (c *Client) move(ctx context.Context, table string, from, to int) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		uids, err := orderedUIDs(ctx, tx, table)
		if err != nil {
			return err
		}
		if from < 0 || from >= len(uids) {
			return fmt.Errorf("moving %s row %d: %w", table, from, store.ErrNotFound)
		}
		return applyOrder(ctx, tx, table, store.Reorder(uids, from, to))
	})
}

// insertOrdered runs insert and then places uid at index at.
func (c *Client) insertOrdered(ctx context.Context, table, uid string, at int, insert func(tx *sql.Tx) error) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		uids, err := orderedUIDs(ctx, tx, table)
		if err != nil {
			return err
		}
		if err := insert(tx); err != nil {
			return err
		}
		return applyOrder(ctx, tx, table, store.InsertAt(uids, uid, at))
	})
}
