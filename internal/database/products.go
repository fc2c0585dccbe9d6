package database

import (
	"context"
	"database/sql"
	"fmt"

	"rastreador-precos/internal/models"

	"github.com/shopspring/decimal"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const productColumns = "p.id, p.name, p.platform, p.url, p.latest_price, p.currency, p.image_url, p.is_available, p.created_at, p.updated_at"

// scanProduct é a única fronteira entre a linha de products e models.Product
func scanProduct(row rowScanner, extra ...any) (models.Product, error) {
	var p models.Product
	var platform string
	var imageURL sql.NullString
	dest := append([]any{&p.ID, &p.Name, &platform, &p.URL, &p.LatestPrice, &p.Currency, &imageURL, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return p, err
	}
	p.Platform = models.Platform(platform)
	p.ImageURL = imageURL.String
	return p, nil
}

// GetOrCreateProductByURL devolve o produto da URL, criando um placeholder se não existir.
// created informa se o produto acabou de ser criado (e precisa de um scrape imediato).
func (db *DB) GetOrCreateProductByURL(ctx context.Context, url string, platform models.Platform) (int64, bool, error) {
	now := db.now()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO products (name, platform, url, latest_price, currency, is_available, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'INR', 1, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		models.PlaceholderName, string(platform), url, decimal.Zero, now, now,
	)
	if err != nil {
		return 0, false, fmt.Errorf("inserir produto: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("inserir produto: %w", err)
	}

	var id int64
	if err := db.conn.QueryRowContext(ctx, "SELECT id FROM products WHERE url = ?", url).Scan(&id); err != nil {
		return 0, false, wrapNotFound(err, "buscar produto por url")
	}
	return id, affected == 1, nil
}

// GetProduct retorna um produto pelo ID
func (db *DB) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products p WHERE p.id = ?", id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, wrapNotFound(err, "buscar produto")
	}
	return &p, nil
}

// UpsertProductData grava os dados extraídos no produto.
// Repetir com a mesma entrada só muda updated_at.
func (db *DB) UpsertProductData(ctx context.Context, productID int64, scraped *models.ScrapedProduct) error {
	return db.upsertProductData(ctx, db.conn, productID, scraped)
}

func (db *DB) upsertProductData(ctx context.Context, ex execer, productID int64, scraped *models.ScrapedProduct) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE products
		 SET name = ?, latest_price = ?, currency = ?, image_url = ?, is_available = ?, updated_at = ?
		 WHERE id = ?`,
		scraped.Name, scraped.Price, scraped.Currency, scraped.ImageURL, scraped.IsAvailable, db.now(), productID,
	)
	if err != nil {
		return fmt.Errorf("atualizar produto %d: %w", productID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("atualizar produto %d: %w", productID, ErrNotFound)
	}
	return nil
}

// SaveScrapeResult grava produto, snapshot e log de sucesso numa única transação
func (db *DB) SaveScrapeResult(ctx context.Context, productID int64, scraped *models.ScrapedProduct) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("iniciar transação: %w", err)
	}
	defer tx.Rollback()

	if err := db.upsertProductData(ctx, tx, productID, scraped); err != nil {
		return 0, err
	}
	snapshotID, err := db.appendSnapshot(ctx, tx, productID, scraped.Price, scraped.Currency, scraped.IsAvailable)
	if err != nil {
		return 0, err
	}
	if err := db.insertScrapeLog(ctx, tx, &productID, models.ScrapeSuccess, ""); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("confirmar transação: %w", err)
	}
	return snapshotID, nil
}

// ListTrackedProducts retorna os produtos com pelo menos um tracker ativo, sem repetição
func (db *DB) ListTrackedProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products p
		 WHERE EXISTS (SELECT 1 FROM trackers t WHERE t.product_id = p.id AND t.is_active = 1)
		 ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("listar produtos acompanhados: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeleteProduct remove um produto; snapshots, logs e trackers vão junto
func (db *DB) DeleteProduct(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remover produto %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("remover produto %d: %w", id, ErrNotFound)
	}
	return nil
}
