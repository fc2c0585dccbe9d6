package database

import (
	"context"
	"database/sql"
	"fmt"

	"rastreador-precos/internal/models"
)

// RecordScrapeResult grava o log de uma tentativa de scrape.
// productID pode ser nil quando o produto não foi resolvido.
func (db *DB) RecordScrapeResult(ctx context.Context, productID *int64, status models.ScrapeStatus, errorMessage string) error {
	return db.insertScrapeLog(ctx, db.conn, productID, status, errorMessage)
}

func (db *DB) insertScrapeLog(ctx context.Context, ex execer, productID *int64, status models.ScrapeStatus, errorMessage string) error {
	var pid sql.NullInt64
	if productID != nil {
		pid = sql.NullInt64{Int64: *productID, Valid: true}
	}
	var msg sql.NullString
	if errorMessage != "" {
		msg = sql.NullString{String: errorMessage, Valid: true}
	}

	if _, err := ex.ExecContext(ctx,
		"INSERT INTO scrape_logs (product_id, status, error_message, scraped_at) VALUES (?, ?, ?, ?)",
		pid, string(status), msg, db.now(),
	); err != nil {
		return fmt.Errorf("gravar log de scrape: %w", err)
	}
	return nil
}

// RecentScrapeLogs retorna os últimos logs de scrape, do mais novo para o mais antigo
func (db *DB) RecentScrapeLogs(ctx context.Context, limit int) ([]models.ScrapeLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, product_id, status, error_message, scraped_at FROM scrape_logs ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listar logs de scrape: %w", err)
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		var pid sql.NullInt64
		var status string
		var msg sql.NullString
		if err := rows.Scan(&l.ID, &pid, &status, &msg, &l.ScrapedAt); err != nil {
			return nil, err
		}
		if pid.Valid {
			id := pid.Int64
			l.ProductID = &id
		}
		l.Status = models.ScrapeStatus(status)
		l.ErrorMessage = msg.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
