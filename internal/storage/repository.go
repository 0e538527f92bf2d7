package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"grana/internal/core"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// migrateSchema applies pending migrations on its own short-lived connection;
// the migration lock never touches the repository pool.
func migrateSchema(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open schema connection: %w", err)
	}
	defer db.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("embedded migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("prepare migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = `t.id, t.user_id, t.description, t.amount, t.type, t.date,
	t.category_id, COALESCE(c.name, ''), t.installment_number, t.total_installments,
	t.parent_transaction_id, t.is_recurring, t.recurrence_period`

// ListTransactions returns every transaction owned by the user, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ?
		ORDER BY t.date DESC, t.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// GetTransaction fetches a single transaction by id, scoped to the user.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.id = ? AND t.user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	return tx, err
}

// GetTransactionByID fetches a transaction regardless of owner. Reserved for
// the sync worker, which operates on ids taken from the queue.
func (r *SQLiteRepository) GetTransactionByID(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	return tx, err
}

// InsertTransaction persists one transaction and returns it with its
// store-assigned identifier.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.ID = uuid.NewString()
	if err := r.exec(ctx, r.db, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"description", tx.Description,
		"amount", tx.Amount.String(),
		"type", tx.Type,
		"date", tx.Date.String())

	return tx, nil
}

// InsertTransactions persists a batch atomically and returns the records with
// their assigned identifiers.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch insert: %w", err)
	}
	defer dbTx.Rollback()

	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.ID = uuid.NewString()
		if err := r.exec(ctx, dbTx, tx); err != nil {
			return nil, fmt.Errorf("insert batch record %d: %w", i+1, err)
		}
		out[i] = tx
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch insert: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch saved", "count", len(out))
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) exec(ctx context.Context, db execer, tx core.Transaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, description, amount, type, date, category_id,
			installment_number, total_installments, parent_transaction_id,
			is_recurring, recurrence_period
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Description, tx.Amount.String(), string(tx.Type), tx.Date.String(),
		nullable(tx.CategoryID), tx.InstallmentNumber, tx.TotalInstallments,
		tx.ParentTransactionID, tx.IsRecurring, string(tx.RecurrencePeriod))
	return err
}

// UpdateTransaction replaces the mutable fields of a transaction. Installment
// and recurrence linkage are immutable after creation and never touched here.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET description = ?, amount = ?, type = ?, category_id = ?, date = ?
		WHERE id = ? AND user_id = ?`,
		tx.Description, tx.Amount.String(), string(tx.Type), nullable(tx.CategoryID), tx.Date.String(),
		id, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, ErrNotFound
	}
	return r.GetTransaction(ctx, userID, id)
}

// DeleteTransaction removes a transaction by id. Deleting an installment does
// not cascade to its siblings or parent.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// ListCategories returns the user's categories plus the system defaults,
// optionally filtered by type.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string, typ core.TransactionType) ([]core.Category, error) {
	query := `
		SELECT id, user_id, name, type, icon
		FROM categories
		WHERE (user_id = ? OR user_id = '')`
	args := []any{userID}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var ctype string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &ctype, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(ctype)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, type, icon)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Type), c.Icon)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID, id string, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, type = ?, icon = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, string(c.Type), c.Icon, id, userID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, ErrNotFound
	}
	c.ID = id
	c.UserID = userID
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		tx         core.Transaction
		amount     string
		txType     string
		date       string
		categoryID sql.NullString
		period     string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Description, &amount, &txType, &date,
		&categoryID, &tx.Category, &tx.InstallmentNumber, &tx.TotalInstallments,
		&tx.ParentTransactionID, &tx.IsRecurring, &period)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	tx.Type = core.TransactionType(txType)
	tx.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	tx.CategoryID = categoryID.String
	tx.RecurrencePeriod = core.RecurrencePeriod(period)
	return tx, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
