package db

import (
	"database/sql"
	"fmt"
	"time"

	"spawnpk-tradepost/internal/engine"
	"spawnpk-tradepost/internal/tradepost"
)

// SaveSnapshot replaces the persisted trade snapshot with the dataset.
// The old snapshot and the new one never coexist: the swap runs in one
// transaction.
func (d *DB) SaveSnapshot(ds *engine.Dataset) error {
	if ds == nil {
		return fmt.Errorf("nil dataset")
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM trades"); err != nil {
		return fmt.Errorf("clear trades: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO trades (item_name, item_id, seller, buyer, price, currency, amount, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range ds.Trades {
		var when sql.NullString
		if !t.Time.IsZero() {
			when = sql.NullString{String: t.Time.Format(tradepost.TimeLayout), Valid: true}
		}
		if _, err := stmt.Exec(t.ItemName, t.ItemID, t.Seller, t.Buyer, t.Price, int(t.Currency), t.Amount, when); err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO snapshot_meta (id, captured_at, total_trades) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET captured_at = excluded.captured_at, total_trades = excluded.total_trades`,
		ds.CapturedAt.UTC().Format(time.RFC3339), len(ds.Trades))
	if err != nil {
		return fmt.Errorf("update snapshot meta: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot reads the persisted trade snapshot. Returns (nil, nil)
// when no snapshot has ever been saved.
func (d *DB) LoadSnapshot() (*engine.Dataset, error) {
	var capturedAt string
	err := d.sql.QueryRow("SELECT captured_at FROM snapshot_meta WHERE id = 1").Scan(&capturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot meta: %w", err)
	}
	captured, err := time.Parse(time.RFC3339, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("parse captured_at %q: %w", capturedAt, err)
	}

	rows, err := d.sql.Query(`
		SELECT item_name, item_id, seller, buyer, price, currency, amount, time
		FROM trades ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read trades: %w", err)
	}
	defer rows.Close()

	ds := &engine.Dataset{CapturedAt: captured}
	for rows.Next() {
		var t tradepost.TradeRecord
		var currency int
		var when sql.NullString
		if err := rows.Scan(&t.ItemName, &t.ItemID, &t.Seller, &t.Buyer, &t.Price, &currency, &t.Amount, &when); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Currency = tradepost.Currency(currency)
		if when.Valid {
			if parsed, err := time.Parse(tradepost.TimeLayout, when.String); err == nil {
				t.Time = tradepost.TradeTime{Time: parsed}
			}
		}
		ds.Trades = append(ds.Trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return ds, nil
}
