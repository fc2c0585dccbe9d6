package database

import (
	"context"
	"fmt"
	"time"

	"rastreador-precos/internal/models"

	"github.com/shopspring/decimal"
)

// AppendSnapshot acrescenta uma observação de preço. Valores repetidos são válidos.
func (db *DB) AppendSnapshot(ctx context.Context, productID int64, price decimal.Decimal, currency string, isAvailable bool) (int64, error) {
	return db.appendSnapshot(ctx, db.conn, productID, price, currency, isAvailable)
}

func (db *DB) appendSnapshot(ctx context.Context, ex execer, productID int64, price decimal.Decimal, currency string, isAvailable bool) (int64, error) {
	res, err := ex.ExecContext(ctx,
		"INSERT INTO price_snapshots (product_id, price, currency, is_available, snapshot_at) VALUES (?, ?, ?, ?, ?)",
		productID, price, currency, isAvailable, db.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserir snapshot do produto %d: %w", productID, err)
	}
	return res.LastInsertId()
}

// QueryHistory retorna os snapshots desde since, do mais antigo para o mais novo
func (db *DB) QueryHistory(ctx context.Context, productID int64, since time.Time) ([]models.PriceSnapshot, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, product_id, price, currency, is_available, snapshot_at
		 FROM price_snapshots
		 WHERE product_id = ? AND snapshot_at >= ?
		 ORDER BY snapshot_at ASC, id ASC`,
		productID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("consultar histórico do produto %d: %w", productID, err)
	}
	defer rows.Close()

	var history []models.PriceSnapshot
	for rows.Next() {
		var s models.PriceSnapshot
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Price, &s.Currency, &s.IsAvailable, &s.SnapshotAt); err != nil {
			return nil, err
		}
		history = append(history, s)
	}
	return history, rows.Err()
}

// RecentSnapshots retorna os n snapshots mais recentes, do mais novo para o mais antigo
func (db *DB) RecentSnapshots(ctx context.Context, productID int64, n int) ([]models.PriceSnapshot, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, product_id, price, currency, is_available, snapshot_at
		 FROM price_snapshots
		 WHERE product_id = ?
		 ORDER BY snapshot_at DESC, id DESC
		 LIMIT ?`,
		productID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("consultar snapshots recentes do produto %d: %w", productID, err)
	}
	defer rows.Close()

	var snapshots []models.PriceSnapshot
	for rows.Next() {
		var s models.PriceSnapshot
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Price, &s.Currency, &s.IsAvailable, &s.SnapshotAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
