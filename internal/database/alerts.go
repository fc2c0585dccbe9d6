package database

import (
	"context"
	"fmt"

	"rastreador-precos/internal/models"
)

// CreateAlert insere um alerta e preenche o ID
func (db *DB) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert.TriggeredAt.IsZero() {
		alert.TriggeredAt = db.now()
	}
	if alert.Status == "" {
		alert.Status = models.AlertPending
	}
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO alerts (user_id, tracker_id, old_price, new_price, status, triggered_at) VALUES (?, ?, ?, ?, ?, ?)",
		alert.UserID, alert.TrackerID, alert.OldPrice, alert.NewPrice, string(alert.Status), alert.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("criar alerta: %w", err)
	}
	alert.ID, err = res.LastInsertId()
	return err
}

// UpdateAlertStatus muda o estado de entrega de um alerta
func (db *DB) UpdateAlertStatus(ctx context.Context, alertID int64, status models.AlertStatus) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE alerts SET status = ? WHERE id = ?", string(status), alertID)
	if err != nil {
		return fmt.Errorf("atualizar alerta %d: %w", alertID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("atualizar alerta %d: %w", alertID, ErrNotFound)
	}
	return nil
}

// LastAlertForTracker retorna o alerta mais recente do tracker, ou ErrNotFound
func (db *DB) LastAlertForTracker(ctx context.Context, trackerID int64) (*models.Alert, error) {
	var a models.Alert
	var status string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, tracker_id, old_price, new_price, status, triggered_at
		 FROM alerts WHERE tracker_id = ?
		 ORDER BY triggered_at DESC, id DESC LIMIT 1`,
		trackerID,
	).Scan(&a.ID, &a.UserID, &a.TrackerID, &a.OldPrice, &a.NewPrice, &status, &a.TriggeredAt)
	if err != nil {
		return nil, wrapNotFound(err, "buscar último alerta")
	}
	a.Status = models.AlertStatus(status)
	return &a, nil
}

// ListAlertsByUser retorna os alertas do usuário, do mais novo para o mais antigo
func (db *DB) ListAlertsByUser(ctx context.Context, userID int64, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, tracker_id, old_price, new_price, status, triggered_at
		 FROM alerts WHERE user_id = ?
		 ORDER BY triggered_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listar alertas: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var status string
		if err := rows.Scan(&a.ID, &a.UserID, &a.TrackerID, &a.OldPrice, &a.NewPrice, &status, &a.TriggeredAt); err != nil {
			return nil, err
		}
		a.Status = models.AlertStatus(status)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
