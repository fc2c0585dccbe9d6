package database

import (
	"context"
	"fmt"

	"rastreador-precos/internal/models"

	"github.com/shopspring/decimal"
)

const trackerColumns = "t.id, t.user_id, t.product_id, t.target_price, t.is_active, t.created_at"

func scanTrackerWithProduct(row rowScanner) (models.TrackerWithProduct, error) {
	var tw models.TrackerWithProduct
	p, err := scanProduct(row,
		&tw.Tracker.ID, &tw.Tracker.UserID, &tw.Tracker.ProductID, &tw.Tracker.TargetPrice, &tw.Tracker.IsActive, &tw.Tracker.CreatedAt)
	if err != nil {
		return tw, err
	}
	tw.Product = p
	return tw, nil
}

// CreateTracker cria a inscrição do usuário no produto
func (db *DB) CreateTracker(ctx context.Context, userID, productID int64, targetPrice decimal.NullDecimal) (*models.Tracker, error) {
	now := db.now()
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO trackers (user_id, product_id, target_price, is_active, created_at) VALUES (?, ?, ?, 1, ?)",
		userID, productID, targetPrice, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTracker
		}
		return nil, fmt.Errorf("criar tracker: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("criar tracker: %w", err)
	}
	return &models.Tracker{
		ID:          id,
		UserID:      userID,
		ProductID:   productID,
		TargetPrice: targetPrice,
		IsActive:    true,
		CreatedAt:   now,
	}, nil
}

// ListTrackersByUser retorna os trackers do usuário com o estado atual de cada produto
func (db *DB) ListTrackersByUser(ctx context.Context, userID int64) ([]models.TrackerWithProduct, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+productColumns+`, `+trackerColumns+`
		 FROM trackers t JOIN products p ON p.id = t.product_id
		 WHERE t.user_id = ?
		 ORDER BY t.created_at DESC, t.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listar trackers: %w", err)
	}
	defer rows.Close()

	var trackers []models.TrackerWithProduct
	for rows.Next() {
		tw, err := scanTrackerWithProduct(rows)
		if err != nil {
			return nil, err
		}
		trackers = append(trackers, tw)
	}
	return trackers, rows.Err()
}

// GetTrackerForUser retorna o tracker do usuário para o produto, ou ErrNotFound
func (db *DB) GetTrackerForUser(ctx context.Context, userID, productID int64) (*models.Tracker, error) {
	var t models.Tracker
	err := db.conn.QueryRowContext(ctx,
		"SELECT "+trackerColumns+" FROM trackers t WHERE t.user_id = ? AND t.product_id = ?",
		userID, productID,
	).Scan(&t.ID, &t.UserID, &t.ProductID, &t.TargetPrice, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, wrapNotFound(err, "buscar tracker")
	}
	return &t, nil
}

// DeleteTracker remove o tracker; só afeta trackers do próprio usuário
func (db *DB) DeleteTracker(ctx context.Context, trackerID, userID int64) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM trackers WHERE id = ? AND user_id = ?", trackerID, userID)
	if err != nil {
		return fmt.Errorf("remover tracker %d: %w", trackerID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("remover tracker %d: %w", trackerID, ErrNotFound)
	}
	return nil
}

// SetTrackerActive pausa ou retoma um tracker sem apagar histórico
func (db *DB) SetTrackerActive(ctx context.Context, trackerID, userID int64, active bool) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE trackers SET is_active = ? WHERE id = ? AND user_id = ?", active, trackerID, userID)
	if err != nil {
		return fmt.Errorf("atualizar tracker %d: %w", trackerID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("atualizar tracker %d: %w", trackerID, ErrNotFound)
	}
	return nil
}

// ListAlertCandidates retorna trackers ativos com preço alvo, junto do produto
func (db *DB) ListAlertCandidates(ctx context.Context) ([]models.TrackerWithProduct, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+productColumns+`, `+trackerColumns+`
		 FROM trackers t JOIN products p ON p.id = t.product_id
		 WHERE t.is_active = 1 AND t.target_price IS NOT NULL
		 ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("listar candidatos a alerta: %w", err)
	}
	defer rows.Close()

	var trackers []models.TrackerWithProduct
	for rows.Next() {
		tw, err := scanTrackerWithProduct(rows)
		if err != nil {
			return nil, err
		}
		trackers = append(trackers, tw)
	}
	return trackers, rows.Err()
}
