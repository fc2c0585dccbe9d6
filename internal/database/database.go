package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound indica que a linha pedida não existe (ou não pertence ao usuário)
	ErrNotFound = errors.New("registro não encontrado")
	// ErrDuplicateTracker indica que o usuário já acompanha o produto
	ErrDuplicateTracker = errors.New("produto já está sendo acompanhado")
)

// DB encapsula a conexão com o banco de dados
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// New cria uma nova instância do banco de dados
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		dsn = "file:" + dbPath
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_foreign_keys=on&_busy_timeout=5000"

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite aceita um escritor por vez; uma conexão também mantém ":memory:" único
	conn.SetMaxOpenConns(1)

	db := &DB{
		conn:   conn,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("banco de dados inicializado", "path", dbPath)
	return db, nil
}

// Close fecha a conexão com o banco de dados
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifica se o banco responde
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// init cria as tabelas necessárias
func (db *DB) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		platform TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		latest_price TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT 'INR',
		image_url TEXT,
		is_available BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trackers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		target_price TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		UNIQUE (user_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS price_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		price TEXT NOT NULL,
		currency TEXT NOT NULL,
		is_available BOOLEAN NOT NULL,
		snapshot_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_price_snapshots_product ON price_snapshots(product_id, snapshot_at);

	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		tracker_id INTEGER NOT NULL REFERENCES trackers(id) ON DELETE CASCADE,
		old_price TEXT NOT NULL,
		new_price TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		triggered_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_user_status ON alerts(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_alerts_tracker ON alerts(tracker_id, triggered_at);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER REFERENCES products(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		error_message TEXT,
		scraped_at DATETIME NOT NULL
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
